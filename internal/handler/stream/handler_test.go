package stream

import (
	"bufio"
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

	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

// readEvent returns the next event name and data line from an SSE stream.
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestEventsStreamsToasts(t *testing.T) {
	hub := notify.NewHub(0, nil)
	r := chi.NewRouter()
	New(hub, time.Hour, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	event, _ := readEvent(t, reader)
	require.Equal(t, "status", event)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), notify.Notification{Message: "Your tree grew +1 branch", NodeID: "n1", ParentID: "r1"})

	event, data := readEvent(t, reader)
	require.Equal(t, "toast", event)
	var toast Toast
	require.NoError(t, json.Unmarshal([]byte(data), &toast))
	assert.Equal(t, "Your tree grew +1 branch", toast.Message)
	assert.Equal(t, "n1", toast.NodeID)
	assert.Equal(t, int64(1600), toast.DurationMS)
	assert.True(t, toast.ExpiresAt.After(toast.CreatedAt))
}

func TestEventsHeartbeat(t *testing.T) {
	hub := notify.NewHub(0, nil)
	r := chi.NewRouter()
	New(hub, 20*time.Millisecond, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	event, _ := readEvent(t, reader)
	require.Equal(t, "status", event)
	event, _ = readEvent(t, reader)
	assert.Equal(t, "heartbeat", event)
}
