package graph

import (
	"strings"
	"testing"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/dify"
)

func TestGenerateDOT(t *testing.T) {
	gen := &Generator{Format: FormatDOT}
	out, err := gen.GenerateString(dify.DeploymentTopology())
	if err != nil {
		t.Fatalf("GenerateString() error: %v", err)
	}

	if !strings.Contains(out, "digraph") {
		t.Error("DOT output should contain 'digraph'")
	}
	for _, name := range []string{"serving", "worker", "sandbox-executor", "plugin-daemon", "console", "database"} {
		if !strings.Contains(out, name) {
			t.Errorf("DOT output missing node %q", name)
		}
	}
	if !strings.Contains(out, "after COMPLETE") {
		t.Error("DOT output should label the sandbox startup dependency")
	}
}

func TestGenerateDefaultFormat(t *testing.T) {
	gen := &Generator{}
	out, err := gen.GenerateString(dify.DeploymentTopology())
	if err != nil {
		t.Fatalf("GenerateString() error: %v", err)
	}
	if !strings.Contains(out, "digraph") {
		t.Error("default format should be DOT")
	}
}

func TestGenerateMermaid(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}
	out, err := gen.GenerateString(dify.DeploymentTopology())
	if err != nil {
		t.Fatalf("GenerateString() error: %v", err)
	}

	if strings.Contains(out, "digraph") {
		t.Error("mermaid output should not contain 'digraph'")
	}
	if !strings.Contains(out, "flowchart") && !strings.Contains(out, "graph") {
		t.Error("mermaid output should declare a flowchart")
	}
}
