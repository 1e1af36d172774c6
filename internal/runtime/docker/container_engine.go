package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	typesimage "github.com/docker/docker/api/types/image"
	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
)

type containerEngine struct {
	cli            dockerClient
	defaultLimits  execution.RunLimits
	pidsLimit      int64
	compileTimeout time.Duration
	logger         *zap.Logger
}

func newContainerEngine(cli dockerClient, defaultLimits execution.RunLimits, pidsLimit int64, logger *zap.Logger) *containerEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &containerEngine{
		cli:            cli,
		defaultLimits:  defaultLimits.Normalize(),
		pidsLimit:      pidsLimit,
		compileTimeout: defaultCompileTimeout,
		logger:         logger,
	}
}

func (c *containerEngine) pullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, typesimage.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("consume pull output for %s: %w", ref, err)
	}
	return nil
}

func (c *containerEngine) effectiveLimits(request execution.RunLimits) execution.RunLimits {
	effective := c.defaultLimits
	overrides := request.Normalize()

	if overrides.TimeLimit > 0 {
		effective.TimeLimit = overrides.TimeLimit
	}
	if overrides.MemoryLimitBytes > 0 {
		effective.MemoryLimitBytes = overrides.MemoryLimitBytes
	}

	return effective
}

// runProgram creates a throwaway container, copies files in, feeds stdin and
// waits for the program to exit or the time limit to expire.
func (c *containerEngine) runProgram(
	ctx context.Context,
	image string,
	workdir string,
	limits execution.RunLimits,
	command []string,
	files []fileSpec,
	stdin string,
	attachStdin bool,
) (*execution.Result, error) {
	effectiveLimits := c.effectiveLimits(limits)

	containerID, cleanup, err := c.createContainer(ctx, image, workdir, effectiveLimits, command, attachStdin, true)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := c.copyFiles(ctx, containerID, workdir, files); err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}

	var attach types.HijackedResponse
	if attachStdin {
		attach, err = c.cli.ContainerAttach(ctx, containerID, container.AttachOptions{
			Stream: true,
			Stdin:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("attach container: %w", err)
		}
		defer attach.Close()
	}

	start := time.Now()
	if err := c.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	if attachStdin && attach.Conn != nil {
		if _, err := io.Copy(attach.Conn, strings.NewReader(stdin)); err != nil {
			return nil, fmt.Errorf("write stdin: %w", err)
		}
		if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = closer.CloseWrite()
		}
	}

	return c.awaitResult(ctx, containerID, effectiveLimits, start)
}

// awaitResult races container exit against the time limit and collects logs.
func (c *containerEngine) awaitResult(ctx context.Context, containerID string, limits execution.RunLimits, start time.Time) (*execution.Result, error) {
	waitCtx := ctx
	var cancel context.CancelFunc
	if limits.TimeLimit > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
	}
	status, err := c.waitForExit(waitCtx, containerID)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && limits.TimeLimit > 0 && ctx.Err() == nil {
			return c.handleTimeLimit(containerID, start)
		}
		return nil, err
	}

	inspectCtx := ctx
	if inspectCtx.Err() != nil {
		inspectCtx = context.Background()
	}

	inspect, err := c.cli.ContainerInspect(inspectCtx, containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}

	stdout, stderr, err := c.fetchLogs(inspectCtx, containerID)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}

	result := &execution.Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: status.StatusCode,
		Duration: time.Since(start),
	}
	if inspect.ContainerJSONBase != nil && inspect.State != nil && inspect.State.OOMKilled {
		result.OOMKilled = true
	}

	return result, nil
}

// createContainer creates a container with networking disabled. isolated adds
// the pids cap reserved for running untrusted programs.
func (c *containerEngine) createContainer(ctx context.Context, image, workdir string, limits execution.RunLimits, cmd []string, attachStdin, isolated bool) (string, func(), error) {
	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			NanoCPUs: 1_000_000_000,
		},
	}
	if limits.MemoryLimitBytes > 0 {
		hostConfig.Resources.Memory = limits.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = limits.MemoryLimitBytes
	}
	if isolated && c.pidsLimit > 0 {
		pids := c.pidsLimit
		hostConfig.Resources.PidsLimit = &pids
	}

	resp, err := c.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:           image,
			Cmd:             cmd,
			AttachStdout:    true,
			AttachStderr:    true,
			AttachStdin:     attachStdin,
			OpenStdin:       attachStdin,
			StdinOnce:       attachStdin,
			WorkingDir:      workdir,
			NetworkDisabled: true,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	cleanup := func() {
		if err := c.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			c.logger.Warn("remove container", zap.String("container", resp.ID), zap.Error(err))
		}
	}

	return resp.ID, cleanup, nil
}
