package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\nfake-body")

// fakeSupabase - /storage/v1/object 엔드포인트 흉내
func fakeSupabase(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	var mu sync.Mutex
	objects := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/storage/v1/object/sign/"):
			var body map[string]int
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 600, body["expiresIn"])
			key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/sign/")
			json.NewEncoder(w).Encode(map[string]string{"signedURL": "/object/sign/" + key + "?token=abc"})

		case r.Method == http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			mu.Lock()
			objects[strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")] = data
			mu.Unlock()
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodGet:
			key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
			key = strings.TrimPrefix(key, "public/")
			mu.Lock()
			data, ok := objects[key]
			mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, objects
}

func TestClientPutGetPublic(t *testing.T) {
	srv, objects := fakeSupabase(t)
	client := NewClient(srv.URL, "service-key", "previews", true)

	locator, err := client.Put(context.Background(), pngHeader, "family-portrait/previews")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(locator, srv.URL+"/storage/v1/object/public/previews/family-portrait/previews/"))
	assert.True(t, strings.HasSuffix(locator, ".png"))
	assert.True(t, client.Owns(locator))
	assert.Len(t, objects, 1)

	data, err := client.Get(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestClientPrivateLocatorAndSign(t *testing.T) {
	srv, _ := fakeSupabase(t)
	client := NewClient(srv.URL, "service-key", "private", false)

	locator, err := client.Put(context.Background(), pngHeader, "clean")
	require.NoError(t, err)
	assert.NotContains(t, locator, "/public/")

	signed, err := client.SignURL(context.Background(), locator, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, srv.URL+"/storage/v1/object/sign/private/clean/"))
	assert.Contains(t, signed, "token=abc")

	_, err = client.SignURL(context.Background(), "https://elsewhere.example/a.png", time.Minute)
	assert.Error(t, err)
}

func TestClientGetNotFound(t *testing.T) {
	srv, _ := fakeSupabase(t)
	client := NewClient(srv.URL, "service-key", "previews", true)

	_, err := client.Get(context.Background(), srv.URL+"/storage/v1/object/public/previews/missing.png")
	assert.Error(t, err)
	assert.False(t, client.Owns("https://other.example/storage/v1/object/public/previews/x.png"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	locator, err := store.Put(context.Background(), pngHeader, "references")
	require.NoError(t, err)
	assert.True(t, store.Owns(locator))
	assert.Equal(t, []string{"references"}, store.Folders())

	data, err := store.Get(context.Background(), locator)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = store.Get(context.Background(), "memory://nope")
	assert.Error(t, err)
	assert.False(t, store.Owns("https://example.com/x.png"))
}
