package docker

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"snippetbot/internal/domain/execution"
)

func TestContainerEngineNormalizesDefaultLimits(t *testing.T) {
	t.Parallel()

	engine := newContainerEngine(nil, executionLimits(-5*time.Second, -10), 0, nil)
	if engine.defaultLimits.TimeLimit != 0 {
		t.Fatalf("expected zero time limit, got %v", engine.defaultLimits.TimeLimit)
	}
	if engine.defaultLimits.MemoryLimitBytes != 0 {
		t.Fatalf("expected zero memory limit, got %d", engine.defaultLimits.MemoryLimitBytes)
	}
}

func TestContainerEngineEffectiveLimitsMergesOverrides(t *testing.T) {
	t.Parallel()

	engine := newContainerEngine(nil, executionLimits(5*time.Second, 1024), 0, nil)
	got := engine.effectiveLimits(executionLimits(2*time.Second, 0))

	if got.TimeLimit != 2*time.Second {
		t.Fatalf("expected time limit 2s, got %v", got.TimeLimit)
	}
	if got.MemoryLimitBytes != 1024 {
		t.Fatalf("expected memory limit 1024, got %d", got.MemoryLimitBytes)
	}
}

func TestRunProgramHandlesTimeLimit(t *testing.T) {
	t.Parallel()

	client := newFakeDockerClient()
	engine := newContainerEngine(client, executionLimits(0, 0), 0, nil)

	client.onCreate(func(id string) {
		client.setWaitSequence(id,
			waitCall{block: true},
			waitCall{status: &container.WaitResponse{StatusCode: 137}},
		)
		client.setLogs(id, "partial", "")
	})

	result, err := engine.runProgram(
		context.Background(),
		"bash",
		"/tmp",
		executionLimits(10*time.Millisecond, 0),
		[]string{"bash", "main.sh"},
		[]fileSpec{{Name: "main.sh", Data: []byte("while true; do :; done")}},
		"",
		false,
	)
	if err != nil {
		t.Fatalf("runProgram returned error: %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected timed out result")
	}
	if result.Stdout != "" {
		t.Fatalf("expected output of timed out run to be discarded, got %q", result.Stdout)
	}
	if result.ExitCode != 137 {
		t.Fatalf("expected exit code 137, got %d", result.ExitCode)
	}
	if len(client.stopCalls) != 1 {
		t.Fatalf("expected ContainerStop to be invoked once, got %d", len(client.stopCalls))
	}
	if client.removedCount() != 1 {
		t.Fatalf("expected container to be removed, got %d removals", client.removedCount())
	}
	if got := execution.Classify(result); got.Kind != execution.KindTimeout {
		t.Fatalf("expected timeout outcome, got %+v", got)
	}
}

func TestRunProgramSuccessWithStdin(t *testing.T) {
	t.Parallel()

	client := newFakeDockerClient()
	engine := newContainerEngine(client, executionLimits(0, 0), 32, nil)

	attachConn := &fakeConn{}
	client.onCreate(func(id string) {
		client.setAttachResponse(id, types.HijackedResponse{Conn: attachConn})
		client.setWaitSequence(id, waitCall{status: &container.WaitResponse{StatusCode: 0}})
		client.setInspect(id, types.ContainerJSON{
			ContainerJSONBase: &types.ContainerJSONBase{
				State: &types.ContainerState{},
			},
		})
		client.setLogs(id, "answer", "")
	})

	stdin := "42\n"
	result, err := engine.runProgram(
		context.Background(),
		"python",
		"/tmp",
		executionLimits(0, 0),
		[]string{"python", "main.py"},
		[]fileSpec{{Name: "main.py", Data: []byte("print(input())")}},
		stdin,
		true,
	)
	if err != nil {
		t.Fatalf("runProgram returned error: %v", err)
	}
	if result.TimedOut || result.OOMKilled {
		t.Fatalf("unexpected flags on result: %+v", result)
	}
	if result.Stdout != "answer" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
	if attachConn.String() != stdin {
		t.Fatalf("expected stdin to be forwarded, got %q", attachConn.String())
	}
	if !attachConn.closed {
		t.Fatalf("expected connection to be closed")
	}
	if len(client.copyToCalls) == 0 {
		t.Fatalf("expected file contents to be copied to container")
	}

	hostConfig := client.createCalls[0].hostConfig
	if hostConfig.NetworkMode != "none" {
		t.Fatalf("expected networking to be disabled, got %q", hostConfig.NetworkMode)
	}
	if hostConfig.Resources.PidsLimit == nil || *hostConfig.Resources.PidsLimit != 32 {
		t.Fatalf("expected pids limit 32, got %v", hostConfig.Resources.PidsLimit)
	}
}

func TestRunProgramReportsOOMKill(t *testing.T) {
	t.Parallel()

	client := newFakeDockerClient()
	engine := newContainerEngine(client, executionLimits(0, 1<<20), 0, nil)

	client.onCreate(func(id string) {
		client.setWaitSequence(id, waitCall{status: &container.WaitResponse{StatusCode: 137}})
		client.setInspect(id, types.ContainerJSON{
			ContainerJSONBase: &types.ContainerJSONBase{
				State: &types.ContainerState{OOMKilled: true},
			},
		})
	})

	result, err := engine.runProgram(context.Background(), "python", "/tmp", executionLimits(0, 0),
		[]string{"python", "main.py"}, nil, "", false)
	if err != nil {
		t.Fatalf("runProgram returned error: %v", err)
	}
	if !result.OOMKilled {
		t.Fatalf("expected OOM flag")
	}
	if got := execution.Classify(result); got.Kind != execution.KindRuntime {
		t.Fatalf("expected runtime outcome, got %+v", got)
	}
}

func executionLimits(duration time.Duration, memory int64) execution.RunLimits {
	return execution.RunLimits{
		TimeLimit:        duration,
		MemoryLimitBytes: memory,
	}
}
