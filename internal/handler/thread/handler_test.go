package thread

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/threadline/backend/internal/model/thought"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

func setupRouter(policy forest.Policy) (*chi.Mux, *forest.Store, *notify.Hub) {
	hub := notify.NewHub(0, nil)
	root := thought.NewNode("r1", "Welcome", thought.Calm, time.Now())
	store := forest.NewStoreFrom([]*thought.Node{root}, forest.Options{
		IDs:      thought.NewSequenceGenerator("n"),
		Notifier: hub,
		Policy:   policy,
	})

	r := chi.NewRouter()
	New(store, 20, nil).RegisterRoutes(r)
	return r, store, hub
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestGetForest(t *testing.T) {
	r, _, _ := setupRouter(forest.PolicyCorrected)

	resp := do(t, r, http.MethodGet, "/forest", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var got forestResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Threads, 1)
	assert.Equal(t, "r1", got.Threads[0].ID)
	assert.Equal(t, thought.Calm, got.Threads[0].Mood)
	assert.Equal(t, 1, got.Stats.Nodes)
}

func TestCreateRootAndReply(t *testing.T) {
	r, store, hub := setupRouter(forest.PolicyCorrected)
	sub := hub.Subscribe(4)
	defer sub.Close()

	resp := do(t, r, http.MethodPost, "/threads", ComposeRequest{Text: " second "})
	require.Equal(t, http.StatusCreated, resp.Code)
	var created mutationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "second", created.Node.Text)
	assert.Equal(t, thought.Thoughtful, created.Node.Mood)
	assert.True(t, created.Notified)

	resp = do(t, r, http.MethodPost, "/nodes/"+created.Node.ID+"/replies", ComposeRequest{Text: "Nice!", Mood: "happy"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var reply mutationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reply))
	assert.Equal(t, created.Node.ID, reply.ParentID)
	assert.Equal(t, thought.Happy, reply.Node.Mood)

	node, ok := store.Find(context.Background(), created.Node.ID)
	require.True(t, ok)
	assert.Equal(t, 1, node.ReplyCount())
	assert.Len(t, sub.C, 2)
}

func TestGetNode(t *testing.T) {
	r, _, _ := setupRouter(forest.PolicyCorrected)
	do(t, r, http.MethodPost, "/nodes/r1/replies", ComposeRequest{Text: "child"})

	resp := do(t, r, http.MethodGet, "/nodes/r1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var view thought.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	require.Len(t, view.Replies, 1)
	assert.Equal(t, "child", view.Replies[0].Text)

	resp = do(t, r, http.MethodGet, "/nodes/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddReplyUnknownTarget(t *testing.T) {
	r, store, hub := setupRouter(forest.PolicyCorrected)
	sub := hub.Subscribe(1)
	defer sub.Close()

	resp := do(t, r, http.MethodPost, "/nodes/nonexistent-id/replies", ComposeRequest{Text: "hello"})

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, 1, store.Stats(context.Background()).Nodes)
	assert.Len(t, sub.C, 0)
}

func TestAddReplyUnknownTargetLegacyStillToasts(t *testing.T) {
	r, _, hub := setupRouter(forest.PolicyLegacy)
	sub := hub.Subscribe(1)
	defer sub.Close()

	resp := do(t, r, http.MethodPost, "/nodes/nonexistent-id/replies", ComposeRequest{Text: "hello"})

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Len(t, sub.C, 1)
}

func TestRejectsInvalidInput(t *testing.T) {
	r, store, _ := setupRouter(forest.PolicyCorrected)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"malformed json", "/threads", "{", http.StatusBadRequest},
		{"blank root", "/threads", ComposeRequest{Text: "   "}, http.StatusUnprocessableEntity},
		{"blank reply", "/nodes/r1/replies", ComposeRequest{Text: ""}, http.StatusUnprocessableEntity},
		{"unknown mood", "/threads", ComposeRequest{Text: "hi", Mood: "angry"}, http.StatusUnprocessableEntity},
		{"too long", "/threads", ComposeRequest{Text: strings.Repeat("x", 21)}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, r, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, resp.Code)
		})
	}
	assert.Equal(t, 1, store.Stats(context.Background()).Nodes)
}

func TestListMoods(t *testing.T) {
	r, _, _ := setupRouter(forest.PolicyCorrected)

	resp := do(t, r, http.MethodGet, "/moods", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"moods":["calm","happy","thoughtful"],"default":"thoughtful"}`, resp.Body.String())
}
