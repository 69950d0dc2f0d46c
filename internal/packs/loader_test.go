package packs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/toolbelt-cli/toolbelt/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func writePack(t *testing.T, root, name, manifest, toolsTOML string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "PACK.md"), []byte(manifest), 0640); err != nil {
		t.Fatal(err)
	}
	if toolsTOML != "" {
		if err := os.WriteFile(filepath.Join(dir, "tools.toml"), []byte(toolsTOML), 0640); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const goodManifest = `---
name: shell-utils
version: 1.0.0
description: basic shell helpers
---

# shell-utils
`

const goodTools = `[tools.echo-query]
command = "echo"
description = "echoes the query back"
args = ["$query"]
timeout_secs = 5
`

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "shell-utils", goodManifest, goodTools)

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(loaded))
	}

	pack := loaded[0]
	if pack.Manifest.Name != "shell-utils" {
		t.Errorf("unexpected manifest name: %s", pack.Manifest.Name)
	}
	def, ok := pack.Tools["echo-query"]
	if !ok {
		t.Fatal("echo-query tool not loaded")
	}
	if def.Name != "echo-query" {
		t.Errorf("tool name not set from section: %s", def.Name)
	}
	if def.Timeout != 5*time.Second {
		t.Errorf("timeout not applied: %v", def.Timeout)
	}
}

func TestLoadAllMissingDir(t *testing.T) {
	loaded, err := NewLoader(filepath.Join(t.TempDir(), "nope"), testLogger()).LoadAll()
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no packs, got %d", len(loaded))
	}
}

func TestLoadAllSkipsBrokenPack(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "good", goodManifest, goodTools)
	writePack(t, root, "broken", "no frontmatter here", "")

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected broken pack to be skipped, got %d packs", len(loaded))
	}
}

func TestDefaultTimeout(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "p", goodManifest, "[tools.t]\ncommand = \"true\"\ndescription = \"noop\"\n")

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if loaded[0].Tools["t"].Timeout != defaultToolTimeout {
		t.Errorf("expected default timeout, got %v", loaded[0].Tools["t"].Timeout)
	}
}

func TestCommandTool(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "shell-utils", goodManifest, goodTools)

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}

	tool := NewCommandTool(loaded[0].Tools["echo-query"], loaded[0])
	if tool.Name() != "echo-query" {
		t.Errorf("unexpected name: %s", tool.Name())
	}

	out, err := tool.Run(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello world" {
		t.Errorf("output = %q, want %q", out, "hello world")
	}
}

func TestCommandToolFailure(t *testing.T) {
	def := &ToolDef{Name: "broken", Command: "false", Timeout: 5 * time.Second}
	pack := &Pack{Manifest: Manifest{Name: "p"}, Dir: t.TempDir()}

	_, err := NewCommandTool(def, pack).Run(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if _, ok := err.(*tools.ExecError); !ok {
		t.Errorf("error is %T, want *tools.ExecError", err)
	}
}

func TestRegisterAll(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "shell-utils", goodManifest, goodTools)

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}

	reg := tools.NewRegistry(testLogger())
	if errs := RegisterAll(reg, loaded); len(errs) != 0 {
		t.Fatalf("unexpected registration errors: %v", errs)
	}
	if _, ok := reg.Find("echo-query"); !ok {
		t.Error("pack tool not registered")
	}

	// Second registration collides
	if errs := RegisterAll(reg, loaded); len(errs) != 1 {
		t.Error("expected collision error on duplicate registration")
	}
}

func TestRegisterAllStableOrder(t *testing.T) {
	toolsTOML := ""
	for _, name := range []string{"foxtrot", "alpha", "echo2", "charlie", "bravo", "delta"} {
		toolsTOML += "[tools." + name + "]\ncommand = \"true\"\ndescription = \"noop\"\n"
	}

	root := t.TempDir()
	writePack(t, root, "many", goodManifest, toolsTOML)

	loaded, err := NewLoader(root, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"alpha", "bravo", "charlie", "delta", "echo2", "foxtrot"}
	for i := 0; i < 50; i++ {
		reg := tools.NewRegistry(testLogger())
		if errs := RegisterAll(reg, loaded); len(errs) != 0 {
			t.Fatalf("unexpected registration errors: %v", errs)
		}
		for j, tool := range reg.List() {
			if tool.Name() != want[j] {
				t.Fatalf("iteration %d: position %d is %q, want %q", i, j, tool.Name(), want[j])
			}
		}
	}
}
