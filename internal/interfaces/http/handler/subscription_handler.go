package handler

import (
	"context"
	"time"

	appsub "github.com/chatmeter/backend/internal/application/subscription"
	"github.com/chatmeter/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionService is the application-layer surface the subscription
// handler depends on
type SubscriptionService interface {
	Create(ctx context.Context, input appsub.CreateSubscriptionInput) (*appsub.SubscriptionDTO, error)
	Cancel(ctx context.Context, userID string, id uuid.UUID) (*appsub.SubscriptionDTO, error)
	RunBillingCycle(ctx context.Context, now time.Time) (*appsub.BillingRunResultDTO, error)
}

// SubscriptionHandler handles subscription-related HTTP requests
type SubscriptionHandler struct {
	BaseHandler
	service SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// RegisterRoutes registers subscription routes on the given group
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	subs := rg.Group("/subscriptions")
	{
		// The billing run is operator-triggered; it carries no user identity.
		subs.POST("/billing/run", h.RunBilling)

		authed := subs.Group("")
		authed.Use(middleware.RequireUser())
		{
			authed.POST("", h.Create)
			authed.POST("/:id/cancel", h.Cancel)
		}
	}
}

type createSubscriptionRequest struct {
	// Tier and billing cycle values are validated by the domain so unknown
	// tiers surface as UNSUPPORTED_TIER rather than a generic binding error.
	Tier         string     `json:"tier" binding:"required"`
	BillingCycle string     `json:"billing_cycle" binding:"required"`
	MaxMessages  *int64     `json:"max_messages" binding:"omitempty,gt=0"`
	Price        *float64   `json:"price" binding:"required,gte=0"`
	AutoRenew    *bool      `json:"auto_renew"`
	StartDate    *time.Time `json:"start_date"`
}

// Create purchases a new subscription bundle for the caller
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid subscription request: "+err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), appsub.CreateSubscriptionInput{
		UserID:       middleware.GetUserID(c),
		Tier:         req.Tier,
		BillingCycle: req.BillingCycle,
		MaxMessages:  req.MaxMessages,
		Price:        decimal.NewFromFloat(*req.Price),
		AutoRenew:    req.AutoRenew,
		StartDate:    req.StartDate,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Cancel stops one of the caller's subscriptions
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RunBilling triggers one billing cycle run immediately
func (h *SubscriptionHandler) RunBilling(c *gin.Context) {
	result, err := h.service.RunBillingCycle(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, result)
}
