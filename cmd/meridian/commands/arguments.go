// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/meridian-foundation/meridian/lib/envelope"
)

// buildArgs assembles the call data from an optional JSON object
// (--data, or --data-file) and key=value pairs, which take precedence.
// Values are parsed as JSON where possible and otherwise kept as
// strings, so test=true is a boolean and name=alice a string.
func buildArgs(data, dataFile string, stdin io.Reader, pairs []string) (envelope.Args, error) {
	args := envelope.Args{}

	var document []byte
	switch {
	case data != "" && dataFile != "":
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	case data != "":
		document = []byte(data)
	case dataFile == "-":
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		document = content
	case dataFile != "":
		content, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dataFile, err)
		}
		document = content
	}

	if len(bytes.TrimSpace(document)) > 0 {
		value, err := parseJSON(document)
		if err != nil {
			return nil, fmt.Errorf("parsing data: %w", err)
		}
		object, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("data must be a JSON object, got %T", value)
		}
		for key, element := range object {
			args[key] = element
		}
	}

	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		if value, err := parseJSON([]byte(raw)); err == nil {
			args[key] = value
		} else {
			args[key] = raw
		}
	}
	return args, nil
}

// parseJSON decodes JSON with comments and trailing commas. Integral
// numbers become int64 so they bind to integer parameters.
func parseJSON(document []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(document)))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return normalizeNumbers(value), nil
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer
		}
		if float, err := typed.Float64(); err == nil {
			return float
		}
		return typed.String()
	case map[string]any:
		for key, element := range typed {
			typed[key] = normalizeNumbers(element)
		}
		return typed
	case []any:
		for index, element := range typed {
			typed[index] = normalizeNumbers(element)
		}
		return typed
	default:
		return value
	}
}
