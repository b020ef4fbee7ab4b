// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"bufio"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// TokenChecker reports whether a token is currently authorized.
// Implementations must reflect external changes to the authorized set
// on the next call.
type TokenChecker interface {
	Contains(token string) (bool, error)
}

// FileStore is the server-side token file. It holds only the path:
// every Contains call reads the file from disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path, creating an empty file
// (mode 0600, parent directories 0700) if none exists.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating directory for token file %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating token file %s: %w", path, err)
	}
	file.Close()
	return &FileStore{path: path}, nil
}

// Path returns the token file path.
func (s *FileStore) Path() string {
	return s.path
}

// Contains reports whether token appears as a line of the token file.
// Comparison is exact (after trimming surrounding whitespace from each
// line) and constant-time per line. An empty token never matches.
func (s *FileStore) Contains(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	file, err := os.Open(s.path)
	if err != nil {
		return false, fmt.Errorf("reading token file %s: %w", s.path, err)
	}
	defer file.Close()

	found := false
	err = withLock(file, unix.LOCK_SH, func() error {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if subtle.ConstantTimeCompare([]byte(line), []byte(token)) == 1 {
				found = true
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return false, fmt.Errorf("reading token file %s: %w", s.path, err)
	}
	return found, nil
}

// Add appends token to the token file. The token becomes valid for the
// next request served by any process reading this file.
func (s *FileStore) Add(token string) error {
	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("token contains characters outside [A-Za-z0-9-_]")
	}
	return appendLine(s.path, token)
}

// Generate returns a new random token: 32 bytes from crypto/rand,
// encoded as unpadded URL-safe base64 (43 characters, all within the
// bearer header character set).
func Generate() (string, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(secret[:]), nil
}
