package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Model is a GGUF file discovered in the models directory.
type Model struct {
	// Name is the filename including extension, e.g. "smollm2-1.7b.gguf".
	Name string
	// Path is the absolute file path.
	Path string
	// SizeMB is the file size in whole megabytes, minimum 1.
	SizeMB int
}

// Registry maps model names to local GGUF files under a single directory.
type Registry struct {
	dir    string
	models []Model
}

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames. The name is the full filename (including extension).
func LoadDir(dir string) (*Registry, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		models = append(models, Model{Name: name, Path: p, SizeMB: fileSizeMB(p)})
	}
	return &Registry{dir: abs, models: models}, nil
}

// Models returns a copy of the discovered models.
func (r *Registry) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

// Resolve returns the model for the given name. Names carrying path
// separators or resolving outside the scanned directory are refused, so a
// user-supplied override can never escape the models directory.
func (r *Registry) Resolve(name string) (Model, error) {
	if name != strings.TrimSpace(name) || name == "" {
		return Model{}, fmt.Errorf("invalid model name %q", name)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return Model{}, fmt.Errorf("invalid model name %q", name)
	}
	for _, m := range r.models {
		if m.Name == name {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("model %q not found in %s", name, r.dir)
}

// fileSizeMB returns the file size in MB, minimum 1 so sizing decisions
// never treat an unreadable file as free.
func fileSizeMB(path string) int {
	fi, err := os.Stat(path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
