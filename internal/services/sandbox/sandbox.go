package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/utils"
)

// interpreters maps action languages to local runtimes. Snippets are passed
// inline so nothing is written to disk.
var interpreters = map[string][]string{
	"python":     {"python3", "-c"},
	"javascript": {"node", "-e"},
	"bash":       {"bash", "-c"},
	"sh":         {"sh", "-c"},
}

// Sandbox runs code snippets in a subprocess and reports stdout, stderr and
// the exit code. Cancellation comes from the caller's context.
type Sandbox struct {
	config *config.SandboxConfig
	log    *logrus.Logger
}

func New(cfg *config.SandboxConfig, log *logrus.Logger) *Sandbox {
	return &Sandbox{
		config: cfg,
		log:    log,
	}
}

func (s *Sandbox) Execute(ctx context.Context, language, code string) (*models.SandboxResult, error) {
	argv, ok := interpreters[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %q", language)
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], code)...)
	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	limit := s.config.OutputLimit
	if limit <= 0 {
		limit = 2000
	}
	result := &models.SandboxResult{
		Stdout: utils.TruncateOutput(stdout.String(), limit),
		Stderr: utils.TruncateOutput(stderr.String(), limit),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Non-zero exit is a result, not an execution error.
			result.ExitCode = exitErr.ExitCode()
			s.log.WithFields(logrus.Fields{
				"language":  language,
				"exit_code": result.ExitCode,
			}).Warn("sandboxed code exited non-zero")
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to run %s code: %w", language, runErr)
	}

	return result, nil
}
