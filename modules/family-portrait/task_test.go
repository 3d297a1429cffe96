package familyportrait

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/provider"
)

// fakeProvider - submit마다 다음 script를 꺼내 poll 응답으로 재생
type fakeProvider struct {
	mu         sync.Mutex
	configured bool
	scripts    [][]provider.Status
	submitErr  error
	pollErrs   []error

	submitted []provider.SubmitRequest
	polls     map[string]int
	tasks     map[string][]provider.Status
}

func newFakeProvider(scripts ...[]provider.Status) *fakeProvider {
	return &fakeProvider{
		configured: true,
		scripts:    scripts,
		polls:      map[string]int{},
		tasks:      map[string][]provider.Status{},
	}
}

func succeeded(locator string) []provider.Status {
	return []provider.Status{
		{State: provider.StateQueuing},
		{State: provider.StateGenerating},
		{State: provider.StateSuccess, ResultLocators: []string{locator}},
	}
}

func failed(reason string) []provider.Status {
	return []provider.Status{
		{State: provider.StateGenerating},
		{State: provider.StateFail, FailureReason: reason},
	}
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Submit(ctx context.Context, req provider.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	if len(f.scripts) == 0 {
		return "", errors.New("no script left")
	}
	taskID := fmt.Sprintf("task-%d", len(f.submitted))
	f.tasks[taskID] = f.scripts[0]
	f.scripts = f.scripts[1:]
	return taskID, nil
}

func (f *fakeProvider) Poll(ctx context.Context, taskID string) (*provider.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		return nil, err
	}
	script := f.tasks[taskID]
	n := f.polls[taskID]
	f.polls[taskID] = n + 1
	if n >= len(script) {
		status := script[len(script)-1]
		return &status, nil
	}
	status := script[n]
	return &status, nil
}

// fakeClock - sleep 할 때만 시간이 흐른다
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestTaskClient(p provider.Provider) (*TaskClient, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	client := NewTaskClient(p)
	client.SetTiming(DefaultPollInterval, DefaultPollTimeout, clock.Sleep, clock.Now)
	return client, clock
}

func TestTaskClientSucceeds(t *testing.T) {
	p := newFakeProvider(succeeded("https://cdn/final.png"))
	client, clock := newTestTaskClient(p)

	task, err := client.Run(context.Background(), provider.SubmitRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, TaskSucceeded, task.State)
	assert.Equal(t, []string{"https://cdn/final.png"}, task.ResultLocators)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, clock.sleeps)
}

func TestTaskClientUnconfiguredFailsBeforeSubmit(t *testing.T) {
	p := newFakeProvider(succeeded("x"))
	p.configured = false
	client, _ := newTestTaskClient(p)

	_, err := client.Run(context.Background(), provider.SubmitRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
	assert.Empty(t, p.submitted)

	_, err = NewTaskClient(nil).Run(context.Background(), provider.SubmitRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}

func TestTaskClientExplicitFailure(t *testing.T) {
	client, _ := newTestTaskClient(newFakeProvider(failed("content policy")))

	task, err := client.Run(context.Background(), provider.SubmitRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTaskFailed))
	assert.False(t, apperr.IsKind(err, apperr.KindTaskTimeout))
	assert.Equal(t, TaskFailed, task.State)
	assert.Equal(t, "content policy", task.FailureReason)
}

func TestTaskClientTimeoutIsDistinctFromFailure(t *testing.T) {
	forever := []provider.Status{{State: provider.StateGenerating}}
	client, clock := newTestTaskClient(newFakeProvider(forever))
	started := clock.now

	task, err := client.Run(context.Background(), provider.SubmitRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTaskTimeout))
	assert.False(t, apperr.IsKind(err, apperr.KindTaskFailed))
	assert.Contains(t, err.Error(), "may still be running")
	assert.Equal(t, TaskRunning, task.State)
	assert.Equal(t, DefaultPollTimeout, clock.now.Sub(started))
}

func TestTaskClientSucceededWithoutOutput(t *testing.T) {
	empty := []provider.Status{{State: provider.StateSuccess}}
	client, _ := newTestTaskClient(newFakeProvider(empty))

	_, err := client.Run(context.Background(), provider.SubmitRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindGenerationFailed))
	assert.Contains(t, err.Error(), "no output")
}

func TestTaskClientStateOnlyMovesForward(t *testing.T) {
	script := []provider.Status{
		{State: provider.StateGenerating},
		{State: provider.StateWaiting},
		{State: provider.StateSuccess, ResultLocators: []string{"r"}},
	}
	client, _ := newTestTaskClient(newFakeProvider(script))

	task, err := client.Run(context.Background(), provider.SubmitRequest{})
	require.NoError(t, err)
	assert.Equal(t, TaskSucceeded, task.State)

	running := &GenerationTask{State: TaskRunning}
	running.advance(TaskQueued)
	assert.Equal(t, TaskRunning, running.State)
}

func TestTaskClientTransientPollErrorKeepsPolling(t *testing.T) {
	p := newFakeProvider(succeeded("r"))
	p.pollErrs = []error{errors.New("read tcp: connection reset by peer")}
	client, _ := newTestTaskClient(p)

	task, err := client.Run(context.Background(), provider.SubmitRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, task.ResultLocators)
}

func TestTaskClientPermanentPollError(t *testing.T) {
	p := newFakeProvider(succeeded("r"))
	p.pollErrs = []error{errors.New("API returned status 401")}
	client, _ := newTestTaskClient(p)

	_, err := client.Run(context.Background(), provider.SubmitRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindGenerationFailed))
}

func TestTaskStateTerminal(t *testing.T) {
	assert.False(t, TaskQueued.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskSucceeded.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestMapState(t *testing.T) {
	tests := []struct {
		raw  string
		want TaskState
	}{
		{"waiting", TaskRunning},
		{"queuing", TaskRunning},
		{"GENERATING", TaskRunning},
		{"success", TaskSucceeded},
		{"fail", TaskFailed},
	}
	for _, tt := range tests {
		got, ok := mapState(tt.raw)
		assert.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, ok := mapState("exploded")
	assert.False(t, ok)
}
