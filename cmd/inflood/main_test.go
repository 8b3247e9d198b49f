package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.inflood/
// MUST be called for any test that creates stores or config files
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", home)
	return home
}

// execute runs the root command with args and returns what it wrote to
// stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// mustExecute is execute failing the test on error.
func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := execute(t, args...)
	if err != nil {
		t.Fatalf("inflood %s: %v\nstderr:\n%s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

// writeEdges writes a weighted directed clique over nodes 1..n and returns
// its path.
func writeEdges(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			if i != j {
				fmt.Fprintf(&b, "%d,%d,%d\n", i, j, i*j)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "edges.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatalf("Failed to write edges: %v", err)
	}
	return path
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "simulate", "runs", "graph", "config", "mcp-server"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"json", "config", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s not registered", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out := mustExecute(t, "version")
	if !strings.Contains(out, "inflood version "+version) {
		t.Errorf("unexpected version output: %q", out)
	}

	out = mustExecute(t, "version", "--json")
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if info["version"] != version {
		t.Errorf("version = %q, want %q", info["version"], version)
	}
}

func TestLoadConfig_LogLevelFlag(t *testing.T) {
	isolateHome(t)

	root := newRootCmd()
	if err := root.ParseFlags([]string{"--log-level", "trace"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q, want trace", cfg.Logging.Level)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, _, err := execute(t, "config", "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing --config file")
	}
}
