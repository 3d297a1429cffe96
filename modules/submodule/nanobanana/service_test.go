package nanobanana

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"family-portrait-server/modules/common/provider"
	"family-portrait-server/modules/common/utils"
)

type fakeModels struct {
	response *genai.GenerateContentResponse
	err      error
	parts    chan []*genai.Part
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.parts <- contents[0].Parts
	return f.response, f.err
}

type mapFetcher map[string][]byte

func (m mapFetcher) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	data, ok := m[locator]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\nrest")

func newTestService(models *fakeModels) *Service {
	return &Service{models: models, model: "gemini-test", fetcher: mapFetcher{"memory://a.png": pngHeader}}
}

func waitTerminal(t *testing.T, s *Service, taskID string) *provider.Status {
	t.Helper()
	var status *provider.Status
	require.Eventually(t, func() bool {
		var err error
		status, err = s.Poll(context.Background(), taskID)
		if err != nil {
			return false
		}
		return status.State == provider.StateSuccess || status.State == provider.StateFail
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestSubmitAndPollSuccess(t *testing.T) {
	models := &fakeModels{
		parts: make(chan []*genai.Part, 1),
		response: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: pngHeader, MIMEType: "image/png"}}}},
		}}},
	}
	s := newTestService(models)

	taskID, err := s.Submit(context.Background(), provider.SubmitRequest{Prompt: "tree", ImageInputs: []string{"memory://a.png"}})
	require.NoError(t, err)

	parts := <-models.parts
	require.Len(t, parts, 2)
	assert.Equal(t, "tree", parts[0].Text)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)

	status := waitTerminal(t, s, taskID)
	assert.Equal(t, provider.StateSuccess, status.State)
	require.Len(t, status.ResultLocators, 1)
	assert.True(t, utils.IsDataURI(status.ResultLocators[0]))
}

func TestSubmitAPIErrorBecomesFailState(t *testing.T) {
	models := &fakeModels{parts: make(chan []*genai.Part, 1), err: errors.New("quota exceeded")}
	s := newTestService(models)

	taskID, err := s.Submit(context.Background(), provider.SubmitRequest{Prompt: "tree"})
	require.NoError(t, err)

	status := waitTerminal(t, s, taskID)
	assert.Equal(t, provider.StateFail, status.State)
	assert.Contains(t, status.FailureReason, "quota exceeded")
}

func TestSubmitWithoutImageInResponse(t *testing.T) {
	models := &fakeModels{parts: make(chan []*genai.Part, 1), response: &genai.GenerateContentResponse{}}
	s := newTestService(models)

	taskID, err := s.Submit(context.Background(), provider.SubmitRequest{Prompt: "tree"})
	require.NoError(t, err)
	assert.Equal(t, provider.StateFail, waitTerminal(t, s, taskID).State)
}

func TestSubmitInputFetchFailure(t *testing.T) {
	s := newTestService(&fakeModels{parts: make(chan []*genai.Part, 1)})
	_, err := s.Submit(context.Background(), provider.SubmitRequest{ImageInputs: []string{"memory://missing.png"}})
	assert.Error(t, err)
}

func TestUnconfiguredService(t *testing.T) {
	s, err := NewService(context.Background(), "", "gemini-test", mapFetcher{})
	require.NoError(t, err)
	assert.False(t, s.Configured())

	_, err = s.Submit(context.Background(), provider.SubmitRequest{})
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestPollUnknownTask(t *testing.T) {
	s := newTestService(&fakeModels{})
	_, err := s.Poll(context.Background(), "nope")
	assert.Error(t, err)
}

func TestPruneFinished(t *testing.T) {
	s := newTestService(&fakeModels{})
	s.tasks.Store("old", &task{state: provider.StateSuccess, createdAt: time.Now().Add(-2 * time.Hour)})
	s.tasks.Store("new", &task{state: provider.StateSuccess, createdAt: time.Now()})

	s.pruneFinished(time.Now())

	_, oldOK := s.tasks.Load("old")
	_, newOK := s.tasks.Load("new")
	assert.False(t, oldOK)
	assert.True(t, newOK)
}
