package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/handler/stream"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler lets a client compose thoughts and receive toasts over one WebSocket.
type Handler struct {
	store    *forest.Store
	hub      *notify.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(store *forest.Store, hub *notify.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PostMessage creates a new root thread.
type PostMessage struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

// ReplyMessage grows a branch under ParentID.
type ReplyMessage struct {
	ParentID string `json:"parentId"`
	Text     string `json:"text"`
	Mood     string `json:"mood"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serialises writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (c *conn) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.ws.WriteJSON(outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		c.logger.Debug("websocket write failed", zap.String("type", msgType), zap.Error(err))
	}
	return err
}

func (c *conn) sendError(message string) {
	_ = c.send("error", map[string]string{"message": message})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	c := &conn{ws: ws, logger: h.logger}
	sub := h.hub.Subscribe(16)
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pump(ctx, c, sub)

	_ = c.send("result", map[string]any{
		"type":  "connected",
		"stats": h.store.Stats(ctx),
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, c, &msg)
	}
}

// pump forwards hub notifications and keeps the connection alive with pings.
func (h *Handler) pump(ctx context.Context, c *conn, sub *notify.Subscription) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, open := <-sub.C:
			if !open {
				return
			}
			if err := c.send("toast", stream.ToastFrom(n)); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg *inboundMessage) {
	switch msg.Type {
	case "post":
		var post PostMessage
		if err := json.Unmarshal(msg.Data, &post); err != nil {
			c.sendError("invalid post payload")
			return
		}
		h.reply(c, "post", "", h.store.CreateRoot(ctx, post.Text, post.Mood))
	case "reply":
		var reply ReplyMessage
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			c.sendError("invalid reply payload")
			return
		}
		h.reply(c, "reply", reply.ParentID, h.store.AddReply(ctx, reply.ParentID, reply.Text, reply.Mood))
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) reply(c *conn, op, parentID string, res forest.Result) {
	if res.Status != forest.Created {
		_ = c.send("error", map[string]string{
			"op":      op,
			"status":  res.Status.String(),
			"message": res.Err().Error(),
		})
		return
	}
	_ = c.send("result", map[string]any{
		"type":     op,
		"node":     res.Node.View(),
		"parentId": parentID,
		"notified": res.Notified,
	})
}
