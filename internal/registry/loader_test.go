package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDirScansGGUFOnly(t *testing.T) {
	d := t.TempDir()
	touch(t, d, "a.gguf")
	touch(t, d, "b.GGUF")
	touch(t, d, "notes.txt")
	if err := os.Mkdir(filepath.Join(d, "sub.gguf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	reg, err := LoadDir(d)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	models := reg.Models()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d: %+v", len(models), models)
	}
	for _, m := range models {
		if !filepath.IsAbs(m.Path) {
			t.Fatalf("path not absolute: %q", m.Path)
		}
		if m.SizeMB < 1 {
			t.Fatalf("size below minimum: %d", m.SizeMB)
		}
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestResolve(t *testing.T) {
	d := t.TempDir()
	touch(t, d, "m1.gguf")
	reg, err := LoadDir(d)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, err := reg.Resolve("m1.gguf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Name != "m1.gguf" {
		t.Fatalf("unexpected model: %+v", m)
	}
	if _, err := reg.Resolve("absent.gguf"); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestResolveRefusesTraversal(t *testing.T) {
	d := t.TempDir()
	touch(t, d, "m1.gguf")
	reg, err := LoadDir(d)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, name := range []string{"../m1.gguf", "/etc/passwd", "sub/m1.gguf", ".hidden.gguf", " m1.gguf", ""} {
		if _, err := reg.Resolve(name); err == nil {
			t.Fatalf("expected rejection for %q", name)
		}
	}
}
