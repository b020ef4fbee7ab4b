// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "meridian",
		Subcommands: []*Command{
			{Name: "call", Run: func(args []string) error { called = "call"; return nil }},
			{Name: "list", Run: func(args []string) error { called = "list"; return nil }},
		},
	}

	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "list" {
		t.Errorf("dispatched to %q, want %q", called, "list")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var receivedArgs []string

	root := &Command{
		Name: "meridian",
		Subcommands: []*Command{
			{
				Name: "token",
				Subcommands: []*Command{
					{
						Name: "fingerprint",
						Run: func(args []string) error {
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"token", "fingerprint", "abc"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "abc" {
		t.Errorf("args = %v, want [abc]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var (
		port       int
		positional []string
	)

	command := &Command{
		Name: "mint",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mint", pflag.ContinueOnError)
			flagSet.IntVar(&port, "port", 0, "port")
			return flagSet
		},
		Run: func(args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute([]string{"a0-Test", "--port", "8004", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if port != 8004 {
		t.Errorf("port = %d, want 8004", port)
	}
	if want := []string{"a0-Test", "extra"}; strings.Join(positional, ",") != strings.Join(want, ",") {
		t.Errorf("args = %v, want %v", positional, want)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "meridian",
		Subcommands: []*Command{
			{Name: "services", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"servces"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "services"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Errorf("error = %#v, want a validation ToolError", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "call",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("call", pflag.ContinueOnError)
			flagSet.Bool("json", false, "")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--jsn"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --json?") {
		t.Errorf("error = %q, want a --json suggestion", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "meridian",
		HelpOutput: &help,
		Subcommands: []*Command{
			{Name: "token", Summary: "Manage service tokens", Subcommands: []*Command{
				{Name: "mint", Summary: "Generate a token", Run: func([]string) error { return nil }},
			}},
		},
	}

	if err := root.Execute([]string{"token"}); err == nil {
		t.Error("Execute(token) = nil, want subcommand required")
	}
	if !strings.Contains(help.String(), "mint") || !strings.Contains(help.String(), "meridian token <command>") {
		t.Errorf("help output = %q", help.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "call",
		Description: "Call a method on a service.",
		Usage:       "meridian call <service> <method>",
		Examples: []Example{
			{Description: "Call test1", Command: "meridian call a0-IDAuthDB test1"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("call", pflag.ContinueOnError)
			flagSet.Bool("json", false, "print the envelope as JSON")
			return flagSet
		},
	}

	var output bytes.Buffer
	command.PrintHelp(&output)
	for _, want := range []string{
		"Call a method on a service.",
		"Usage:\n  meridian call <service> <method>",
		"--json",
		"# Call test1",
		"meridian call a0-IDAuthDB test1",
	} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("help output missing %q:\n%s", want, output.String())
		}
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	var help bytes.Buffer
	ran := false
	command := &Command{
		Name:       "list",
		Summary:    "List methods",
		HelpOutput: &help,
		Run:        func([]string) error { ran = true; return nil },
	}

	if err := command.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help) error: %v", err)
	}
	if ran {
		t.Error("Run was called for --help")
	}
	if !strings.Contains(help.String(), "List methods") {
		t.Errorf("help output = %q", help.String())
	}
}
