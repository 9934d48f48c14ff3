package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"interviewer/pkg/logx"
	"interviewer/pkg/state"
)

// Language identifies a supported sandbox language.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

// ParseLanguage normalizes a language string, defaulting to python.
func ParseLanguage(lang string) Language {
	switch lang {
	case "javascript", "js", "node":
		return LanguageJavaScript
	default:
		return LanguagePython
	}
}

// Runner executes candidate source text in a sandbox. It writes the code
// to a temp workspace, picks the executor for the language, and converts
// the raw result into the state-level ExecutionResult record.
type Runner struct {
	pythonExec Executor
	nodeExec   Executor
	timeout    time.Duration
	logger     *logx.Logger
}

// NewRunner creates a runner backed by the given per-language executors.
func NewRunner(pythonExec, nodeExec Executor, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		pythonExec: pythonExec,
		nodeExec:   nodeExec,
		timeout:    timeout,
		logger:     logx.NewLogger("sandbox-runner"),
	}
}

// NewDockerRunner creates a runner using per-language container images.
func NewDockerRunner(pythonImage, nodeImage string, timeout time.Duration) *Runner {
	return NewRunner(NewDockerExec(pythonImage), NewDockerExec(nodeImage), timeout)
}

// NewLocalRunner creates an unsandboxed runner for development.
func NewLocalRunner(timeout time.Duration) *Runner {
	local := NewLocalExec()
	return NewRunner(local, local, timeout)
}

// Execute runs candidate source text and returns the captured result.
// Execution failure (including timeout) is reported inside the result, not
// as an error; only workspace setup problems error out.
func (r *Runner) Execute(ctx context.Context, code string, language Language) (state.ExecutionResult, error) {
	workDir, err := os.MkdirTemp("", "interviewer-run-")
	if err != nil {
		return state.ExecutionResult{}, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	var fileName string
	var cmd []string
	var executor Executor

	switch language {
	case LanguageJavaScript:
		fileName = "main.js"
		cmd = []string{"node", fileName}
		executor = r.nodeExec
	default:
		fileName = "main.py"
		cmd = []string{"python3", fileName}
		executor = r.pythonExec
	}

	if err := os.WriteFile(filepath.Join(workDir, fileName), []byte(code), 0o644); err != nil { //nolint:gosec // throwaway workspace
		return state.ExecutionResult{}, fmt.Errorf("failed to write source file: %w", err)
	}

	opts := DefaultExecOpts()
	opts.Timeout = r.timeout
	opts.WorkDir = workDir

	result, err := executor.Run(ctx, cmd, &opts)
	if err != nil {
		r.logger.Warn("sandbox run failed to start: %v", err)
		return state.ExecutionResult{
			ExitCode:   -1,
			Success:    false,
			Error:      err.Error(),
			DurationMS: result.Duration.Milliseconds(),
		}, nil
	}

	execResult := state.ExecutionResult{
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		DurationMS: result.Duration.Milliseconds(),
		Success:    result.ExitCode == 0,
	}

	if ctx.Err() != nil || (result.ExitCode != 0 && result.Duration >= r.timeout) {
		execResult.Error = fmt.Sprintf("execution timed out after %s", r.timeout)
	}

	return execResult, nil
}
