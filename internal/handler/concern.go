package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/greecode/admin-portal/internal/errs"
	"github.com/greecode/admin-portal/internal/model"
	"github.com/greecode/admin-portal/internal/service"
)

// ConcernHandler serves the public intake and the admin concern routes.
type ConcernHandler struct {
	svc service.ConcernServicer
}

// NewConcernHandler wraps the concern workflow.
func NewConcernHandler(svc service.ConcernServicer) *ConcernHandler {
	return &ConcernHandler{svc: svc}
}

type createConcernRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Create is the public intake endpoint.
func (h *ConcernHandler) Create(c *gin.Context) {
	var req createConcernRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	concern, err := h.svc.Create(c.Request.Context(), service.Intake{
		UserID:  req.UserID,
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusCreated, concern)
}

// List returns one status when ?status= is given, otherwise the three workflow partitions.
func (h *ConcernHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	if v := c.Query("status"); v != "" {
		status, ok := model.ParseConcernStatus(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		items, err := h.svc.ListByStatus(ctx, status)
		if err != nil {
			writeConcernError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"concerns": items,
			"total":    len(items),
		})
		return
	}
	p, err := h.svc.Partition(ctx)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Summary is the per-status count shown on the dashboard support card.
func (h *ConcernHandler) Summary(c *gin.Context) {
	counts, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending": counts[model.ConcernStatusPending],
		"active":  counts[model.ConcernStatusActive],
		"closed":  counts[model.ConcernStatusClosed],
	})
}

// Get returns one concern with its messages.
func (h *ConcernHandler) Get(c *gin.Context) {
	id, ok := concernID(c)
	if !ok {
		return
	}
	concern, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, concern)
}

// Accept moves a pending concern to active.
func (h *ConcernHandler) Accept(c *gin.Context) {
	id, ok := concernID(c)
	if !ok {
		return
	}
	concern, err := h.svc.Accept(c.Request.Context(), id)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, concern)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage posts an admin reply.
func (h *ConcernHandler) SendMessage(c *gin.Context) {
	id, ok := concernID(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	concern, err := h.svc.SendMessage(c.Request.Context(), id, req.Content, model.SenderAdmin)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, concern)
}

type requesterMessageRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Content string `json:"content"`
}

// RequesterReply posts a user message on the requester's own concern. A concern owned by
// someone else is reported as not found.
func (h *ConcernHandler) RequesterReply(c *gin.Context) {
	id, ok := concernID(c)
	if !ok {
		return
	}
	var req requesterMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ctx := c.Request.Context()
	concern, err := h.svc.Get(ctx, id)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	if concern.UserID != req.UserID {
		writeConcernError(c, errs.ErrConcernNotFound)
		return
	}
	concern, err = h.svc.SendMessage(ctx, id, req.Content, model.SenderUser)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, concern)
}

type closeConcernRequest struct {
	Reason  string `json:"reason"`
	Summary string `json:"summary"`
}

// Close requires one of the known reasons and a non-blank summary.
func (h *ConcernHandler) Close(c *gin.Context) {
	id, ok := concernID(c)
	if !ok {
		return
	}
	var req closeConcernRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	concern, err := h.svc.Close(c.Request.Context(), id, model.CloseReason(req.Reason), req.Summary)
	if err != nil {
		writeConcernError(c, err)
		return
	}
	c.JSON(http.StatusOK, concern)
}

func concernID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeConcernError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrConcernNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "concern not found"})
	case errors.Is(err, errs.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrCloseReasonRequired),
		errors.Is(err, errs.ErrCloseSummaryRequired),
		errors.Is(err, errs.ErrEmptyMessage),
		errors.Is(err, errs.ErrInvalidSender),
		errors.Is(err, errs.ErrIncompleteIntake):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("concerns: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
