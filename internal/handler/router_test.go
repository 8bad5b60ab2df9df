package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	moodservice "github.com/zhouzirui/threadline/backend/internal/service/mood"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

func newTestRouter(t *testing.T) (http.Handler, *forest.Store) {
	t.Helper()
	hub := notify.NewHub(0, nil)
	store := forest.NewStore(forest.Options{Notifier: hub})
	moods, err := moodservice.NewService(context.Background(), nil, moodservice.Config{}, nil)
	require.NoError(t, err)
	return NewRouter(Deps{Store: store, Hub: hub, Moods: moods, MaxText: 100}), store
}

func TestRouterServesAPI(t *testing.T) {
	r, store := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/threads", bytes.NewReader([]byte(`{"text":"hello"}`))))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header().Get("Content-Type"))

	assert.Equal(t, 2, store.Stats(context.Background()).Roots)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/forest", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Welcome to Threadline")
}
