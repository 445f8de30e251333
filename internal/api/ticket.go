package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/middleware"
	"github.com/lalith-99/disputedesk/internal/session"
	"github.com/lalith-99/disputedesk/internal/ticket"
)

// TicketHandler exposes the ticket operations. All authorization happens
// inside the coordinator; handlers only translate between HTTP and the
// core's types.
type TicketHandler struct {
	coord  *session.Coordinator
	logger *zap.Logger
}

func NewTicketHandler(coord *session.Coordinator, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{coord: coord, logger: logger}
}

type createTicketRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	InvoiceRef  string `json:"invoice_ref"`
}

// Create handles POST /v1/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.coord.CreateTicket(c.Request.Context(), middleware.GetClaims(c), ticket.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		InvoiceRef:  req.InvoiceRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// List handles GET /v1/tickets; the caller's own tickets, or every
// ticket when the caller is an admin.
func (h *TicketHandler) List(c *gin.Context) {
	tickets, err := h.coord.ListTickets(c.Request.Context(), middleware.GetClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// Get handles GET /v1/tickets/:id; the full view: ticket plus comments.
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	view, err := h.coord.GetTicketView(c.Request.Context(), middleware.GetClaims(c), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Resolve handles POST /v1/tickets/:id/resolve
func (h *TicketHandler) Resolve(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	t, err := h.coord.ResolveTicket(c.Request.Context(), middleware.GetClaims(c), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type postCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// PostComment handles POST /v1/tickets/:id/comments. An Idempotency-Key
// header makes network-level retries safe: the same key never creates a
// second comment.
func (h *TicketHandler) PostComment(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	var req postCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cm, err := h.coord.PostComment(
		c.Request.Context(),
		middleware.GetClaims(c),
		ticketID,
		req.Body,
		c.GetHeader("Idempotency-Key"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}
