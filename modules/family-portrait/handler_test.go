package familyportrait

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/provider"
)

type staticUnlocker struct {
	unlocked map[string]bool
	err      error
}

func (s staticUnlocker) IsUnlocked(ctx context.Context, assetID string) (bool, error) {
	return s.unlocked[assetID], s.err
}

type fakeSigner struct{}

func (fakeSigner) Owns(locator string) bool { return strings.HasPrefix(locator, "memory://") }

func (fakeSigner) SignURL(ctx context.Context, locator string, expiresIn time.Duration) (string, error) {
	return "https://signed.example/" + strings.TrimPrefix(locator, "memory://") + "?ttl=" + expiresIn.String(), nil
}

func newRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postGenerate(t *testing.T, router http.Handler, req *GenerateRequest) (*httptest.ResponseRecorder, GenerateResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/family-portrait/generate", bytes.NewReader(body)))

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandleGenerateSuccess(t *testing.T) {
	p := newPipeline(t, succeeded(pngDataURI(t, 160, 120)))
	router := newRouter(NewHandler(p.service, nil, nil))

	rec, resp := postGenerate(t, router, familyRequest(t, 3, 1))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Artifact)
	assert.NotEmpty(t, resp.Artifact.AssetID)

	// clean locator는 응답 어디에도 없어야 한다
	clean, err := p.service.ResolveAsset(context.Background(), resp.Artifact.AssetID)
	require.NoError(t, err)
	assert.NotContains(t, rec.Body.String(), clean)
}

func TestHandleGenerateErrorStatuses(t *testing.T) {
	forever := []provider.Status{{State: provider.StateGenerating}}

	tests := []struct {
		name   string
		setup  func(p *pipeline, req *GenerateRequest)
		script []provider.Status
		status int
		code   string
	}{
		{"validation", func(p *pipeline, req *GenerateRequest) { req.Members = req.Members[:1] }, succeeded("x"), http.StatusBadRequest, "validation"},
		{"not configured", func(p *pipeline, req *GenerateRequest) { p.provider.configured = false }, succeeded("x"), http.StatusServiceUnavailable, "configuration"},
		{"task failed", func(p *pipeline, req *GenerateRequest) {}, failed("nope"), http.StatusBadGateway, "task_failed"},
		{"timeout", func(p *pipeline, req *GenerateRequest) {}, forever, http.StatusGatewayTimeout, "task_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.script)
			req := familyRequest(t, 3, 0)
			tt.setup(p, req)

			rec, resp := postGenerate(t, newRouter(NewHandler(p.service, nil, nil)), req)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.ErrorCode)
		})
	}
}

func TestHandleGenerateMalformedBody(t *testing.T) {
	p := newPipeline(t)
	rec := httptest.NewRecorder()
	newRouter(NewHandler(p.service, nil, nil)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/family-portrait/generate", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetAsset(t *testing.T) {
	p := newPipeline(t, succeeded(pngDataURI(t, 160, 120)))
	artifact, err := p.service.Generate(context.Background(), familyRequest(t, 2, 0))
	require.NoError(t, err)
	assetID := artifact.AssetID

	unknownID := "ast_" + strings.Repeat("A", 43)

	tests := []struct {
		name     string
		unlocker Unlocker
		assetID  string
		status   int
	}{
		{"locked", staticUnlocker{}, assetID, http.StatusPaymentRequired},
		{"default unlocker is locked", nil, assetID, http.StatusPaymentRequired},
		{"ledger unavailable", staticUnlocker{err: errors.New("redis down")}, assetID, http.StatusServiceUnavailable},
		{"unlocked", staticUnlocker{unlocked: map[string]bool{assetID: true}}, assetID, http.StatusOK},
		{"unknown id", staticUnlocker{unlocked: map[string]bool{unknownID: true}}, unknownID, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(NewHandler(p.service, tt.unlocker, fakeSigner{}))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/family-portrait/assets/"+tt.assetID, nil))
			assert.Equal(t, tt.status, rec.Code)

			var resp AssetResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.status == http.StatusOK {
				assert.True(t, strings.HasPrefix(resp.CleanURL, "https://signed.example/"))
				assert.Contains(t, resp.CleanURL, "ttl=1h0m0s")
			} else {
				assert.Empty(t, resp.CleanURL)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.Newf(apperr.KindNotFound, "x", "y")))
	assert.Equal(t, http.StatusBadGateway, StatusFor(apperr.Newf(apperr.KindTransfer, "x", "y")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
