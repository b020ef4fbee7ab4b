// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"
)

// servicePattern matches service identifiers: a lowercase letter, a
// digit, a dash, then a name ("a0-IDAuthDB").
var servicePattern = regexp.MustCompile(`^[a-z][0-9]-[A-Za-z0-9_-]+$`)

// ErrInvalidServiceID is returned for a service identifier that does
// not match the "<letter><digit>-<name>" form.
var ErrInvalidServiceID = errors.New("invalid service id")

// AccessEntry is one line of a client access file: where a service
// listens and the token that authorizes calls to it.
type AccessEntry struct {
	Service string
	Port    int
	Token   string
}

// ValidateServiceID reports whether id is a well-formed service
// identifier.
func ValidateServiceID(id string) error {
	if !servicePattern.MatchString(id) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidServiceID, id, servicePattern)
	}
	return nil
}

// ParseAccessLine parses a single "<service-id>.<base64 port>.<token>"
// line. The port is the big-endian unsigned integer carried by the
// decoded bytes, so "H0Q=" (0x1f 0x44) is port 8004.
func ParseAccessLine(line string) (AccessEntry, error) {
	parts := strings.Split(line, ".")
	if len(parts) != 3 {
		return AccessEntry{}, fmt.Errorf("expected 3 dot-separated fields, got %d", len(parts))
	}
	service, encodedPort, token := parts[0], parts[1], parts[2]

	if err := ValidateServiceID(service); err != nil {
		return AccessEntry{}, err
	}
	portBytes, err := base64.StdEncoding.DecodeString(encodedPort)
	if err != nil {
		return AccessEntry{}, fmt.Errorf("decoding port for %s: %w", service, err)
	}
	if len(portBytes) == 0 {
		return AccessEntry{}, fmt.Errorf("port for %s is empty", service)
	}
	port := new(big.Int).SetBytes(portBytes)
	if !port.IsInt64() || port.Int64() < 1 || port.Int64() > 65535 {
		return AccessEntry{}, fmt.Errorf("port %s for %s is outside 1-65535", port, service)
	}
	if !tokenPattern.MatchString(token) {
		return AccessEntry{}, fmt.Errorf("token for %s contains characters outside [A-Za-z0-9-_]", service)
	}
	return AccessEntry{Service: service, Port: int(port.Int64()), Token: token}, nil
}

// FormatAccessLine is the inverse of ParseAccessLine. The port is
// written as two big-endian bytes.
func FormatAccessLine(entry AccessEntry) (string, error) {
	if err := ValidateServiceID(entry.Service); err != nil {
		return "", err
	}
	if entry.Port < 1 || entry.Port > 65535 {
		return "", fmt.Errorf("port %d for %s is outside 1-65535", entry.Port, entry.Service)
	}
	if !tokenPattern.MatchString(entry.Token) {
		return "", fmt.Errorf("token for %s contains characters outside [A-Za-z0-9-_]", entry.Service)
	}
	port := base64.StdEncoding.EncodeToString([]byte{byte(entry.Port >> 8), byte(entry.Port)})
	return entry.Service + "." + port + "." + entry.Token, nil
}

// LoadAccessFile reads an access file into a map keyed by service id.
// Blank lines are skipped. A later line for the same service replaces
// an earlier one. Any malformed line fails the load with its line
// number.
func LoadAccessFile(path string) (map[string]AccessEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading access file %s: %w", path, err)
	}
	defer file.Close()

	entries := make(map[string]AccessEntry)
	err = withLock(file, unix.LOCK_SH, func() error {
		scanner := bufio.NewScanner(file)
		lineNumber := 0
		for scanner.Scan() {
			lineNumber++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			entry, err := ParseAccessLine(line)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNumber, err)
			}
			entries[entry.Service] = entry
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("parsing access file %s: %w", path, err)
	}
	return entries, nil
}

// AppendAccessEntry appends entry to the access file at path, creating
// it with mode 0600 if needed.
func AppendAccessEntry(path string, entry AccessEntry) error {
	line, err := FormatAccessLine(entry)
	if err != nil {
		return err
	}
	return appendLine(path, line)
}
