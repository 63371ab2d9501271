package inference

import (
	"context"
	"os/exec"
)

// CommandExecutor abstracts exec.CommandContext so the process client can be
// tested without the real inference procedure.
type CommandExecutor interface {
	// CommandContext returns an *exec.Cmd configured to run name with the
	// given arguments. The provided context is used for cancellation.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealCommandExecutor delegates to the os/exec package.
type RealCommandExecutor struct{}

// CommandContext wraps exec.CommandContext.
func (RealCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...) //nolint:gosec // command and args come from configuration
}
