package packs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const defaultToolTimeout = 30 * time.Second

// Loader discovers and loads tool packs from a directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader scanning the given directory for packs.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger.With("component", "packs")}
}

// LoadAll loads every pack under the directory. A missing directory is
// not an error; individual broken packs are logged and skipped.
func (l *Loader) LoadAll() ([]*Pack, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("pack directory does not exist, skipping", "dir", l.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read pack dir: %w", err)
	}

	var loaded []*Pack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packDir := filepath.Join(l.dir, entry.Name())
		pack, err := l.loadPack(packDir)
		if err != nil {
			l.logger.Warn("failed to load pack", "dir", packDir, "error", err)
			continue
		}
		loaded = append(loaded, pack)
		l.logger.Info("pack loaded", "name", pack.Manifest.Name, "tools", len(pack.Tools))
	}
	return loaded, nil
}

func (l *Loader) loadPack(dir string) (*Pack, error) {
	manifest, err := parseManifest(filepath.Join(dir, "PACK.md"))
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}

	defs, err := loadToolDefs(filepath.Join(dir, "tools.toml"))
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}

	for name, def := range defs {
		def.Name = name
		if def.TimeoutSecs > 0 {
			def.Timeout = time.Duration(def.TimeoutSecs) * time.Second
		} else {
			def.Timeout = defaultToolTimeout
		}
	}

	return &Pack{Manifest: *manifest, Tools: defs, Dir: dir}, nil
}

// parseManifest reads the YAML frontmatter between the leading "---"
// fences of PACK.md.
func parseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content := string(data)
	if !strings.HasPrefix(content, "---") {
		return nil, fmt.Errorf("missing frontmatter in %s", path)
	}
	rest := content[3:]
	end := strings.Index(rest, "---")
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter in %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal([]byte(rest[:end]), &m); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &m, nil
}

// loadToolDefs parses the [tools.<name>] sections of tools.toml. A pack
// with no tools.toml has no tools.
func loadToolDefs(path string) (map[string]*ToolDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*ToolDef{}, nil
		}
		return nil, err
	}

	var file struct {
		Tools map[string]*ToolDef `toml:"tools"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tools.toml: %w", err)
	}
	if file.Tools == nil {
		file.Tools = map[string]*ToolDef{}
	}
	return file.Tools, nil
}
