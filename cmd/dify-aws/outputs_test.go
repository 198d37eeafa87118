package main

import (
	"strings"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
)

func TestPrintOutputs(t *testing.T) {
	outputs := map[string]auto.OutputValue{
		"albUrl":      {Value: "http://alb.example.com"},
		"apiKey":      {Value: "hunter2", Secret: true},
		"clusterName": {Value: "dify-cluster"},
	}

	var sb strings.Builder
	printOutputs(outputs, &sb, false)
	got := sb.String()

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}

	// Sorted by name, secrets masked.
	if !strings.HasPrefix(lines[0], "albUrl = ") {
		t.Errorf("first line %q, want albUrl first", lines[0])
	}
	if !strings.Contains(got, "apiKey = [secret]") {
		t.Errorf("secret value should be masked:\n%s", got)
	}
	if strings.Contains(got, "hunter2") {
		t.Errorf("secret value leaked:\n%s", got)
	}

	sb.Reset()
	printOutputs(outputs, &sb, true)
	if !strings.Contains(sb.String(), "hunter2") {
		t.Error("--show-secrets should print the value")
	}
}
