package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
)

// maxLoggedStderr caps how much of the procedure's stderr is logged.
const maxLoggedStderr = 4096

// Config describes how to launch the inference procedure.
type Config struct {
	Command string
	Args    []string
	WorkDir string
	Timeout time.Duration
}

// ProcessClient implements port.InferenceClient by running an external
// process. The serialized feature vector is passed as the last argument and
// the payload is read from stdout.
type ProcessClient struct {
	executor CommandExecutor
	logger   *slog.Logger
	cfg      Config
}

// NewProcessClient creates a new ProcessClient. A nil executor runs real
// processes.
func NewProcessClient(cfg Config, executor CommandExecutor, logger *slog.Logger) *ProcessClient {
	if executor == nil {
		executor = RealCommandExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessClient{
		executor: executor,
		logger:   logger.With("component", "inference"),
		cfg:      cfg,
	}
}

// Infer runs the procedure once. A timeout yields model.ErrInferenceTimeout.
// A non-zero exit is tolerated when stdout carries output; with empty stdout
// it yields model.ErrInferenceOutput.
func (c *ProcessClient) Infer(ctx context.Context, features model.FeatureVector) ([]byte, error) {
	arg, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature vector: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.cfg.Args...), string(arg))
	cmd := c.executor.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Dir = c.cfg.WorkDir
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s did not finish within %s", model.ErrInferenceTimeout, c.cfg.Command, c.cfg.Timeout)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("inference cancelled: %w", ctx.Err())
	}

	if stderr.Len() > 0 {
		c.logger.Warn("inference procedure wrote to stderr",
			"stderr", truncate(stderr.String(), maxLoggedStderr),
			"elapsed", elapsed,
		)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run inference procedure %s: %w", c.cfg.Command, runErr)
		}
		if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
			return nil, fmt.Errorf("%w: %s exited with code %d and no output", model.ErrInferenceOutput, c.cfg.Command, exitErr.ExitCode())
		}
		c.logger.Warn("inference procedure exited non-zero, using its output",
			"exit_code", exitErr.ExitCode(),
		)
	}

	c.logger.Debug("inference procedure finished", "elapsed", elapsed, "bytes", stdout.Len())
	return stdout.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
