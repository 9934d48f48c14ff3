package exec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"interviewer/pkg/logx"
)

// DockerExec implements the Executor interface using Docker containers.
// Every run gets a fresh throwaway container, so candidate code never
// shares filesystem or network with another run.
type DockerExec struct {
	logger            *logx.Logger
	image             string
	dockerCmd         string
	containerPrefix   string
	mu                sync.RWMutex
	runningContainers map[string]*exec.Cmd
}

// NewDockerExec creates a new Docker executor for the given image.
func NewDockerExec(image string) *DockerExec {
	// Prefer docker; fall back to podman when only podman is installed.
	dockerCmd := "docker"
	if _, err := exec.LookPath("podman"); err == nil {
		if _, err := exec.LookPath("docker"); err != nil {
			dockerCmd = "podman"
		}
	}

	return &DockerExec{
		logger:            logx.NewLogger("docker-exec"),
		image:             image,
		dockerCmd:         dockerCmd,
		containerPrefix:   "interviewer-sandbox-",
		runningContainers: make(map[string]*exec.Cmd),
	}
}

// Name returns the executor type name.
func (d *DockerExec) Name() ExecutorType {
	return ExecutorTypeDocker
}

// Available checks if Docker is available and the daemon is running.
func (d *DockerExec) Available() bool {
	if _, err := exec.LookPath(d.dockerCmd); err != nil {
		d.logger.Debug("container command not found: %v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.dockerCmd, "ps", "-q")
	if err := cmd.Run(); err != nil {
		d.logger.Debug("container daemon not available: %v", err)
		return false
	}
	return true
}

// Run executes a command in a fresh container.
func (d *DockerExec) Run(ctx context.Context, cmd []string, opts *Opts) (Result, error) {
	start := time.Now()

	if len(cmd) == 0 {
		return Result{}, fmt.Errorf("command cannot be empty")
	}

	containerName := fmt.Sprintf("%s%d", d.containerPrefix, time.Now().UnixNano())
	dockerArgs := d.buildDockerArgs(containerName, cmd, opts)

	execCtx := ctx
	if opts != nil && opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	dockerCmd := exec.CommandContext(execCtx, d.dockerCmd, dockerArgs...)

	d.mu.Lock()
	d.runningContainers[containerName] = dockerCmd
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.runningContainers, containerName)
		d.mu.Unlock()
		d.cleanupContainer(containerName)
	}()

	var stdoutBuf, stderrBuf strings.Builder
	dockerCmd.Stdout = &stdoutBuf
	dockerCmd.Stderr = &stderrBuf

	err := dockerCmd.Run()

	result := Result{
		Stdout:       stdoutBuf.String(),
		Stderr:       stderrBuf.String(),
		Duration:     time.Since(start),
		ExecutorUsed: string(d.Name()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("container run failed: %w", err)
	}

	return result, nil
}

// buildDockerArgs constructs the docker run command arguments with the
// sandbox hardening the options request.
func (d *DockerExec) buildDockerArgs(containerName string, cmd []string, opts *Opts) []string {
	args := []string{"run", "--rm", "--name", containerName}

	args = append(args, "--security-opt", "no-new-privileges")

	if opts != nil {
		if opts.ReadOnly {
			args = append(args, "--read-only")
			// Writable scratch space for interpreters that need a tmpdir.
			args = append(args, "--tmpfs", "/tmp:rw,noexec,nosuid,size=64m")
		}
		if opts.NetworkDisabled {
			args = append(args, "--network", "none")
		}
		if opts.WorkDir != "" {
			args = append(args, "-v", fmt.Sprintf("%s:/workspace:ro", opts.WorkDir))
			args = append(args, "-w", "/workspace")
		}
		for _, env := range opts.Env {
			args = append(args, "-e", env)
		}
		if limits := opts.ResourceLimits; limits != nil {
			if limits.CPUs != "" {
				args = append(args, "--cpus", limits.CPUs)
			}
			if limits.Memory != "" {
				args = append(args, "--memory", limits.Memory)
			}
			if limits.PIDs > 0 {
				args = append(args, "--pids-limit", strconv.FormatInt(limits.PIDs, 10))
			}
		}
	}

	args = append(args, d.image)
	args = append(args, cmd...)
	return args
}

// cleanupContainer force-removes a container in case --rm did not fire
// (e.g., the run was killed by timeout).
func (d *DockerExec) cleanupContainer(containerName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.dockerCmd, "rm", "-f", containerName)
	if err := cmd.Run(); err != nil {
		d.logger.Debug("container cleanup for %s: %v", containerName, err)
	}
}
