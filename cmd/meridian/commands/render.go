// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/meridian-foundation/meridian/cmd/meridian/cli"
	"github.com/meridian-foundation/meridian/lib/codec"
	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/service"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// statusLine renders "200 OK" or "499 my custom error", colored when
// the output is a terminal.
func statusLine(result service.Result, styled bool) string {
	code := fmt.Sprintf("%d", result.Code)
	text := result.Error
	if result.Success {
		text = "OK"
	} else if text == "" {
		text = envelope.StatusText(result.Code)
	}

	line := code + " " + text
	if !styled {
		if result.RequestID != "" {
			line += " (" + result.RequestID + ")"
		}
		return line
	}

	style := successStyle
	if !result.Success {
		style = failureStyle
	}
	line = style.Render(line)
	if result.RequestID != "" {
		line += " " + dimStyle.Render(result.RequestID)
	}
	return line
}

// callOutput is the --json shape of a call result.
type callOutput struct {
	Success   bool           `json:"success"`
	Code      int            `json:"code"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

type outputMode int

const (
	outputText outputMode = iota
	outputJSON
	outputDiagnostic
)

// writeResult prints result in the selected mode.
func writeResult(w io.Writer, result service.Result, mode outputMode, styled bool) error {
	switch mode {
	case outputJSON:
		return cli.WriteJSON(w, callOutput{
			Success:   result.Success,
			Code:      result.Code,
			Data:      result.Data,
			Error:     result.Error,
			RequestID: result.RequestID,
		})

	case outputDiagnostic:
		if !result.Success {
			_, err := fmt.Fprintln(w, statusLine(result, false))
			return err
		}
		encoded, err := codec.Marshal(result.Data)
		if err != nil {
			return cli.Internal("re-encoding result: %v", err)
		}
		diagnostic, err := codec.Diagnose(encoded)
		if err != nil {
			return cli.Internal("diagnosing result: %v", err)
		}
		_, err = fmt.Fprintln(w, diagnostic)
		return err

	default:
		if _, err := fmt.Fprintln(w, statusLine(result, styled)); err != nil {
			return err
		}
		if !result.Success || len(result.Data) == 0 {
			return nil
		}
		return cli.WriteJSON(w, jsonSafe(result.Data))
	}
}

// jsonSafe converts decoded CBOR values that encoding/json rejects,
// such as maps with non-string keys, into printable forms.
func jsonSafe(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, element := range typed {
			converted[key] = jsonSafe(element)
		}
		return converted
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for key, element := range typed {
			converted[fmt.Sprint(key)] = jsonSafe(element)
		}
		return converted
	case []any:
		converted := make([]any, len(typed))
		for index, element := range typed {
			converted[index] = jsonSafe(element)
		}
		return converted
	default:
		return value
	}
}
