package main

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestStackCommandsHaveSharedFlags(t *testing.T) {
	cmds := map[string]*cobra.Command{
		"up":      newUpCmd(),
		"preview": newPreviewCmd(),
		"destroy": newDestroyCmd(),
		"outputs": newOutputsCmd(),
		"watch":   newWatchCmd(),
	}

	for name, cmd := range cmds {
		if cmd.Short == "" {
			t.Errorf("%s: Short description should not be empty", name)
		}
		for _, flag := range []string{"config", "stack"} {
			if cmd.Flags().Lookup(flag) == nil {
				t.Errorf("%s: missing --%s flag", name, flag)
			}
		}
	}

	if cmds["up"].Use != "up" {
		t.Errorf("Use = %q, want 'up'", cmds["up"].Use)
	}
}

func TestConfigFlagDefault(t *testing.T) {
	cmd := newUpCmd()
	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("missing --config flag")
	}
	if flag.DefValue != "dify.yaml" {
		t.Errorf("config default = %q, want 'dify.yaml'", flag.DefValue)
	}
}

func TestWatchDebounceDefault(t *testing.T) {
	cmd := newWatchCmd()
	flag := cmd.Flags().Lookup("debounce")
	if flag == nil {
		t.Fatal("missing --debounce flag")
	}
	if flag.DefValue != "500ms" {
		t.Errorf("debounce default = %q, want '500ms'", flag.DefValue)
	}
}

func TestDestroyRequiresConfirmation(t *testing.T) {
	cmd := newDestroyCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("destroy without --yes should fail")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error %q should mention --yes", err.Error())
	}
}

func TestOutputsFormatDefault(t *testing.T) {
	cmd := newOutputsCmd()
	flag := cmd.Flags().Lookup("format")
	if flag == nil {
		t.Fatal("missing --format flag")
	}
	if flag.DefValue != "text" {
		t.Errorf("format default = %q, want 'text'", flag.DefValue)
	}
}
