package packs

import "time"

// Manifest is the parsed PACK.md frontmatter.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
}

// ToolDef is one tool definition loaded from tools.toml.
type ToolDef struct {
	Name        string        `toml:"-"`
	Command     string        `toml:"command"`
	Description string        `toml:"description"`
	Args        []string      `toml:"args"`
	Env         []string      `toml:"env"`
	TimeoutSecs int           `toml:"timeout_secs"`
	Timeout     time.Duration `toml:"-"`
}

// Pack is a fully loaded tool pack.
type Pack struct {
	Manifest Manifest
	Tools    map[string]*ToolDef
	Dir      string // absolute path to the pack directory
}
