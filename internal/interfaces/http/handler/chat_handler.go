package handler

import (
	"context"

	appchat "github.com/chatmeter/backend/internal/application/chat"
	"github.com/chatmeter/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ChatService is the application-layer surface the chat handler depends on
type ChatService interface {
	AskQuestion(ctx context.Context, input appchat.AskQuestionInput) (*appchat.AskQuestionResult, error)
	GetUsageSummary(ctx context.Context, userID string) (*appchat.UsageSummaryDTO, error)
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	BaseHandler
	service ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// RegisterRoutes registers chat routes on the given group
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chat := rg.Group("/chat")
	chat.Use(middleware.RequireUser())
	{
		chat.POST("/ask", h.Ask)
		chat.GET("/usage", h.Usage)
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required,notblank"`
}

// Ask charges one message against the caller's quota and returns the answer
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Question is required")
		return
	}

	result, err := h.service.AskQuestion(c.Request.Context(), appchat.AskQuestionInput{
		UserID:   middleware.GetUserID(c),
		Question: req.Question,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Usage reports the caller's consumption for the current month
func (h *ChatHandler) Usage(c *gin.Context) {
	summary, err := h.service.GetUsageSummary(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, summary)
}
