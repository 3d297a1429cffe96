package familyportrait

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/provider"
	"family-portrait-server/modules/common/transfer"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// TaskClient - provider 작업 생성 후 종료 상태까지 polling
type TaskClient struct {
	provider provider.Provider
	interval time.Duration
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewTaskClient - 기본 2초 간격, 5분 제한
func NewTaskClient(p provider.Provider) *TaskClient {
	return &TaskClient{
		provider: p,
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
		sleep:    transfer.SleepContext,
		now:      time.Now,
	}
}

// SetTiming - polling 간격/제한과 시간 함수 교체
func (c *TaskClient) SetTiming(interval, timeout time.Duration, sleep func(ctx context.Context, d time.Duration) error, now func() time.Time) {
	c.interval = interval
	c.timeout = timeout
	c.sleep = sleep
	c.now = now
}

// Configured - provider 설정 여부
func (c *TaskClient) Configured() bool {
	return c.provider != nil && c.provider.Configured()
}

// mapState - provider 원시 상태 → TaskState
func mapState(raw string) (TaskState, bool) {
	switch strings.ToLower(raw) {
	case provider.StateWaiting, provider.StateQueuing, provider.StateGenerating:
		return TaskRunning, true
	case provider.StateSuccess:
		return TaskSucceeded, true
	case provider.StateFail:
		return TaskFailed, true
	}
	return "", false
}

// advance - 상태는 앞으로만 이동 (이전 상태로 돌아가는 보고는 무시)
func (t *GenerationTask) advance(next TaskState) {
	if next.rank() > t.State.rank() {
		t.State = next
	}
}

// Run - submit 후 종료 상태까지 대기, 성공 시 결과 locator가 1개 이상인 task 반환
// 제한 시간을 넘기면 polling만 포기하며, 원격 작업은 계속 실행될 수 있다
func (c *TaskClient) Run(ctx context.Context, req provider.SubmitRequest) (*GenerationTask, error) {
	if !c.Configured() {
		return nil, apperr.New(apperr.KindConfiguration, "create task", provider.ErrNotConfigured)
	}

	taskID, err := c.provider.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			return nil, apperr.New(apperr.KindConfiguration, "create task", err)
		}
		return nil, apperr.New(apperr.KindGenerationFailed, "create task", err)
	}

	task := &GenerationTask{TaskID: taskID, State: TaskQueued}
	log.Printf("📝 [Task] Created %s task %s (inputs: %d)", c.provider.Name(), taskID, len(req.ImageInputs))

	return task, c.wait(ctx, task)
}

func (c *TaskClient) wait(ctx context.Context, task *GenerationTask) error {
	started := c.now()
	attempt := 0

	for {
		if elapsed := c.now().Sub(started); elapsed >= c.timeout {
			log.Printf("⏰ [Task] %s: gave up after %v (remote task may still be running)", task.TaskID, elapsed.Round(time.Second))
			return apperr.Newf(apperr.KindTaskTimeout, "poll task",
				"task %s did not finish within %v; the remote task may still be running", task.TaskID, c.timeout)
		}

		if err := c.sleep(ctx, c.interval); err != nil {
			return apperr.New(apperr.KindGenerationFailed, "poll task", err)
		}
		attempt++

		status, err := c.provider.Poll(ctx, task.TaskID)
		if err != nil {
			if transfer.IsRetryable(err) {
				log.Printf("⚠️  [Task] %s: poll %d failed (retrying next tick): %v", task.TaskID, attempt, err)
				continue
			}
			return apperr.New(apperr.KindGenerationFailed, "poll task", err)
		}

		next, ok := mapState(status.State)
		if !ok {
			log.Printf("⚠️  [Task] %s: unknown state %q, treating as running", task.TaskID, status.State)
			next = TaskRunning
		}

		previous := task.State
		task.advance(next)
		if task.State != previous {
			log.Printf("🔄 [Task] %s: %s → %s (poll %d)", task.TaskID, previous, task.State, attempt)
		}
		if !task.State.Terminal() {
			continue
		}

		switch task.State {
		case TaskSucceeded:
			task.ResultLocators = status.ResultLocators
			if len(task.ResultLocators) == 0 {
				return apperr.Newf(apperr.KindGenerationFailed, "poll task", "task %s succeeded but no output", task.TaskID)
			}
			log.Printf("✅ [Task] %s: succeeded with %d result(s)", task.TaskID, len(task.ResultLocators))
			return nil
		case TaskFailed:
			task.FailureReason = status.FailureReason
			if task.FailureReason == "" {
				task.FailureReason = "provider reported failure"
			}
			log.Printf("❌ [Task] %s: failed: %s", task.TaskID, task.FailureReason)
			return apperr.Newf(apperr.KindTaskFailed, "poll task", "task %s failed: %s", task.TaskID, task.FailureReason)
		}
	}
}
