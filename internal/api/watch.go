package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/storage"
	"github.com/devshare/devshare/pkg/logging"
)

const subscribeTimeout = 10 * time.Second

// WatchHandler bridges live query subscriptions onto websocket connections.
// The client opens the socket, sends one subscribe frame, and receives a full
// snapshot frame on subscribe and after every relevant change. Closing the
// socket disposes the subscription.
type WatchHandler struct {
	watcher  *posts.Watcher
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWatchHandler creates a websocket watch handler
func NewWatchHandler(watcher *posts.Watcher) *WatchHandler {
	return &WatchHandler{
		watcher: watcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.GetLogger().With(zap.String("component", "watch-ws")),
	}
}

type subscribeFrame struct {
	Watch  string          `json:"watch"` // "posts", "post" or "answers"
	Kind   models.PostKind `json:"type"`
	ID     string          `json:"id"`
	PostID string          `json:"postId"`
	Order  string          `json:"order"`
}

type snapshotFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type errorFrame struct {
	Event   string `json:"event"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handle upgrades the connection and serves one subscription until the
// client disconnects
func (h *WatchHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(subscribeTimeout))
	var frame subscribeFrame
	if err := conn.ReadJSON(&frame); err != nil {
		h.writeError(conn, nil, NewError(ErrInvalidParams, "expected a subscribe frame"))
		return
	}
	conn.SetReadDeadline(time.Time{})

	// Serializes snapshot and error writes; the watcher delivers
	// sequentially but error frames race the data path
	var mu sync.Mutex

	onError := func(err error) {
		h.writeError(conn, &mu, translate(err))
	}

	var cancel posts.CancelFunc
	switch frame.Watch {
	case "posts":
		cancel, err = h.watcher.WatchByKind(frame.Kind, func(list []*models.Post) {
			h.writeSnapshot(conn, &mu, list)
		}, onError)
		if err != nil {
			h.writeError(conn, &mu, translate(err))
			return
		}
	case "post":
		if frame.ID == "" {
			h.writeError(conn, &mu, NewError(ErrInvalidParams, "id is required"))
			return
		}
		cancel = h.watcher.WatchPost(frame.ID, func(p *models.Post) {
			h.writeSnapshot(conn, &mu, p)
		}, onError)
	case "answers":
		if frame.PostID == "" {
			h.writeError(conn, &mu, NewError(ErrInvalidParams, "postId is required"))
			return
		}
		order := storage.OrderAsc
		if frame.Order == string(storage.OrderDesc) {
			order = storage.OrderDesc
		}
		cancel = h.watcher.WatchAnswers(frame.PostID, order, func(list []*models.Answer) {
			h.writeSnapshot(conn, &mu, list)
		}, onError)
	default:
		h.writeError(conn, &mu, NewError(ErrInvalidParams, "watch must be posts, post or answers"))
		return
	}
	defer cancel()

	// Block until the client goes away; inbound frames beyond the
	// subscribe frame are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WatchHandler) writeSnapshot(conn *websocket.Conn, mu *sync.Mutex, data interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteJSON(snapshotFrame{Event: "snapshot", Data: data}); err != nil {
		h.logger.Debug("snapshot write failed", zap.Error(err))
	}
}

func (h *WatchHandler) writeError(conn *websocket.Conn, mu *sync.Mutex, apiErr *Error) {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	_ = conn.WriteJSON(errorFrame{Event: "error", Code: apiErr.Code, Message: apiErr.Message})
}
