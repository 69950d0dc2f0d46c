package packs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/toolbelt-cli/toolbelt/internal/tools"
)

// CommandTool adapts a pack tool definition to the tools.Tool interface.
// The user query replaces "$query" in the argument list and is always
// exported as TOOLBELT_QUERY.
type CommandTool struct {
	def  *ToolDef
	pack *Pack
}

// NewCommandTool wraps one pack tool definition.
func NewCommandTool(def *ToolDef, pack *Pack) *CommandTool {
	return &CommandTool{def: def, pack: pack}
}

func (c *CommandTool) Name() string { return c.def.Name }

func (c *CommandTool) Description() string { return c.def.Description }

func (c *CommandTool) Run(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.def.Timeout)
	defer cancel()

	args := make([]string, len(c.def.Args))
	for i, arg := range c.def.Args {
		if arg == "$query" {
			args[i] = input
		} else {
			args[i] = arg
		}
	}

	cmd := exec.CommandContext(ctx, c.def.Command, args...)
	cmd.Dir = c.pack.Dir
	cmd.Env = append(os.Environ(), "TOOLBELT_QUERY="+input)
	for _, envDef := range c.def.Env {
		cmd.Env = append(cmd.Env, os.ExpandEnv(envDef))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &tools.ExecError{
			Tool:    c.def.Name,
			Message: fmt.Sprintf("command failed: %s", msg),
		}
	}

	return strings.TrimRight(stdout.String(), "\n"), nil
}

// RegisterAll adds every tool from the given packs to the registry.
// Tools register in sorted name order within each pack so enumeration
// order is stable across runs. Name collisions with already registered
// tools are reported by the registry and skipped.
func RegisterAll(registry *tools.Registry, loaded []*Pack) []error {
	var errs []error
	for _, pack := range loaded {
		names := make([]string, 0, len(pack.Tools))
		for name := range pack.Tools {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := registry.Register(NewCommandTool(pack.Tools[name], pack)); err != nil {
				errs = append(errs, fmt.Errorf("pack %s: %w", pack.Manifest.Name, err))
			}
		}
	}
	return errs
}
