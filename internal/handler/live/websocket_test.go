package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/threadline/backend/internal/model/thought"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, policy forest.Policy) (*websocket.Conn, *forest.Store) {
	t.Helper()
	hub := notify.NewHub(0, nil)
	root := thought.NewNode("r1", "Welcome", thought.Calm, time.Now())
	store := forest.NewStoreFrom([]*thought.Node{root}, forest.Options{
		IDs:      thought.NewSequenceGenerator("n"),
		Notifier: hub,
		Policy:   policy,
	})

	r := chi.NewRouter()
	New(store, hub, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	var hello envelope
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, "result", hello.Type)
	return ws, store
}

// readUntil collects envelopes until one of each wanted type has been seen.
func readUntil(t *testing.T, ws *websocket.Conn, wanted ...string) map[string]envelope {
	t.Helper()
	got := make(map[string]envelope)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(got) < len(wanted) {
		var env envelope
		require.NoError(t, ws.ReadJSON(&env))
		for _, w := range wanted {
			if env.Type == w {
				got[w] = env
			}
		}
	}
	return got
}

func TestReplyOverSocketPushesResultAndToast(t *testing.T) {
	ws, store := dial(t, forest.PolicyCorrected)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type": "reply",
		"data": ReplyMessage{ParentID: "r1", Text: "Hi!", Mood: "happy"},
	}))

	got := readUntil(t, ws, "result", "toast")

	var result struct {
		Type     string       `json:"type"`
		Node     thought.View `json:"node"`
		ParentID string       `json:"parentId"`
	}
	require.NoError(t, json.Unmarshal(got["result"].Data, &result))
	assert.Equal(t, "reply", result.Type)
	assert.Equal(t, "n1", result.Node.ID)
	assert.Equal(t, "r1", result.ParentID)

	var toast struct {
		Message string `json:"message"`
		NodeID  string `json:"nodeId"`
	}
	require.NoError(t, json.Unmarshal(got["toast"].Data, &toast))
	assert.Equal(t, forest.GrowthMessage, toast.Message)
	assert.Equal(t, "n1", toast.NodeID)

	node, ok := store.Find(context.Background(), "r1")
	require.True(t, ok)
	assert.Equal(t, 1, node.ReplyCount())
}

func TestPostBlankTextReportsInvalidInput(t *testing.T) {
	ws, _ := dial(t, forest.PolicyCorrected)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type": "post",
		"data": PostMessage{Text: "   "},
	}))

	got := readUntil(t, ws, "error")
	var payload map[string]string
	require.NoError(t, json.Unmarshal(got["error"].Data, &payload))
	assert.Equal(t, "post", payload["op"])
	assert.Equal(t, "invalid_input", payload["status"])
}

func TestUnsupportedMessageType(t *testing.T) {
	ws, _ := dial(t, forest.PolicyCorrected)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "delete"}))

	got := readUntil(t, ws, "error")
	assert.Contains(t, string(got["error"].Data), "unsupported message type: delete")
}
