// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"reflect"
	"strings"
	"testing"

	"github.com/meridian-foundation/meridian/lib/envelope"
	"github.com/meridian-foundation/meridian/lib/testutil"
)

func TestBuildArgs(t *testing.T) {
	dataFile := testutil.WriteFile(t, "transfer.jsonc",
		`{`,
		`  // who pays`,
		`  "from": "alice",`,
		`  "amount": 12,`,
		`}`,
	)

	tests := []struct {
		name     string
		data     string
		dataFile string
		stdin    string
		pairs    []string
		want     envelope.Args
	}{
		{
			name: "no_arguments",
			want: envelope.Args{},
		},
		{
			name:  "pairs_parse_json_values",
			pairs: []string{"test=true", "count=3", "ratio=0.5", "name=alice", "tags=[\"a\",\"b\"]", "empty=", "nothing=null"},
			want: envelope.Args{
				"test":    true,
				"count":   int64(3),
				"ratio":   0.5,
				"name":    "alice",
				"tags":    []any{"a", "b"},
				"empty":   "",
				"nothing": nil,
			},
		},
		{
			name: "data_object",
			data: `{"to": "bob", "nested": {"n": 1}}`,
			want: envelope.Args{"to": "bob", "nested": map[string]any{"n": int64(1)}},
		},
		{
			name:  "pairs_override_data",
			data:  `{"to": "bob"}`,
			pairs: []string{"to=carol"},
			want:  envelope.Args{"to": "carol"},
		},
		{
			name:     "data_file_with_comments",
			dataFile: dataFile,
			want:     envelope.Args{"from": "alice", "amount": int64(12)},
		},
		{
			name:     "data_file_stdin",
			dataFile: "-",
			stdin:    `{"from": "stdin"}`,
			want:     envelope.Args{"from": "stdin"},
		},
		{
			name:  "value_with_equals_sign",
			pairs: []string{"query=a=b"},
			want:  envelope.Args{"query": "a=b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildArgs(tt.data, tt.dataFile, strings.NewReader(tt.stdin), tt.pairs)
			if err != nil {
				t.Fatalf("buildArgs: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildArgs = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBuildArgsErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		dataFile string
		pairs    []string
		wantErr  string
	}{
		{name: "both_sources", data: "{}", dataFile: "x.json", wantErr: "mutually exclusive"},
		{name: "data_not_object", data: "[1, 2]", wantErr: "must be a JSON object"},
		{name: "data_invalid", data: "{not json", wantErr: "parsing data"},
		{name: "missing_file", dataFile: "/nonexistent/args.json", wantErr: "reading /nonexistent/args.json"},
		{name: "pair_without_equals", pairs: []string{"verbose"}, wantErr: `"verbose" is not key=value`},
		{name: "pair_without_key", pairs: []string{"=1"}, wantErr: "is not key=value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildArgs(tt.data, tt.dataFile, strings.NewReader(""), tt.pairs)
			if err == nil {
				t.Fatal("buildArgs = nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
