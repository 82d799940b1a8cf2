package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/stageiq/stageiq/internal/services"
	"github.com/stageiq/stageiq/internal/utils"
	"github.com/stageiq/stageiq/internal/workers"
)

// WSHandler forwards an assessment's lifecycle pushes to the browser.
// Subscribe-only: clients submit over HTTP and just listen here. Polling the
// status endpoint remains the authoritative contract; this socket is an
// additive convenience.
type WSHandler struct {
	assessments services.AssessmentService
	redis       *redis.Client
	upgrader    websocket.Upgrader
}

func NewWSHandler(assessments services.AssessmentService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		assessments: assessments,
		redis:       rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) AssessmentWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	assessmentID := c.Param("assessment_id")
	if assessmentID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.AssessmentWS", "missing assessment_id", nil))
		return
	}

	// authorize ownership before upgrading
	a, err := h.assessments.Get(c.Request.Context(), assessmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.AssessmentWS", "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, workers.StatusChannel(assessmentID))
	defer pubsub.Close()

	// reader: drain client frames so pings/pongs and close frames work, and
	// cancel the handler when the client goes away
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	forwardStatus(ctx, pubsub.Channel(), wc.writeText)
}

// forwardStatus copies pub/sub payloads to the socket until the context is
// canceled, the subscription closes, or a write fails. The subscription is
// consumed through its channel so a disconnect is observed even when the
// assessment is terminal and nothing will ever publish again.
func forwardStatus(ctx context.Context, ch <-chan *redis.Message, write func([]byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := write([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
