package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/middleware"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Bearer-token auth, no cookies, so cross-origin requests carry
		// no ambient credentials to protect.
		return true
	},
}

// StreamHandler serves the live view of a ticket over a websocket.
type StreamHandler struct {
	coord  *session.Coordinator
	logger *zap.Logger
}

func NewStreamHandler(coord *session.Coordinator, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{coord: coord, logger: logger}
}

// streamFrame is one websocket message. Exactly one of the fields is set.
type streamFrame struct {
	Type    string           `json:"type"` // "snapshot", "comment", "status"
	Ticket  *models.Ticket   `json:"ticket,omitempty"`
	History []models.Comment `json:"history,omitempty"`
	Comment *models.Comment  `json:"comment,omitempty"`
	Status  session.Status   `json:"status,omitempty"`
}

// Attach handles GET /v1/tickets/:id/stream.
//
// Authorization runs before the upgrade so a denied caller gets a proper
// HTTP status instead of a half-open socket. After the upgrade the
// handler sends one snapshot frame (ticket + history) and then forwards
// live comments and status changes until either side disconnects.
// Closing the socket detaches the session deterministically.
func (h *StreamHandler) Attach(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	sess, err := h.coord.Attach(c.Request.Context(), middleware.GetClaims(c), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sess.Close()
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer sess.Close()

	if err := conn.WriteJSON(streamFrame{
		Type:    "snapshot",
		Ticket:  sess.Ticket(),
		History: sess.History(),
	}); err != nil {
		return
	}

	// Reader goroutine: the client never sends application data, but
	// reading is what notices a dropped peer. A read error closes done
	// and ends the write loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	statusCh := sess.StatusEvents()
	for {
		select {
		case <-done:
			return
		case st, ok := <-statusCh:
			if !ok {
				statusCh = nil // session winding down; comments channel closes next
				continue
			}
			if err := conn.WriteJSON(streamFrame{Type: "status", Status: st}); err != nil {
				return
			}
		case cm, ok := <-sess.Comments():
			if !ok {
				// Session ended (parent context cancelled).
				return
			}
			if err := conn.WriteJSON(streamFrame{Type: "comment", Comment: &cm}); err != nil {
				return
			}
		}
	}
}
