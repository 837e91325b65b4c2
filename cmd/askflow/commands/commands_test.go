package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if info["version"] == "" || !strings.HasPrefix(info["go_version"], "go") {
		t.Errorf("info = %v", info)
	}
}

func TestRootFlags(t *testing.T) {
	root := NewRootCmd()
	if root.PersistentFlags().Lookup("conf") == nil {
		t.Fatal("missing --conf flag")
	}
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	if !names["serve"] || !names["version"] {
		t.Errorf("subcommands = %v", names)
	}
}
