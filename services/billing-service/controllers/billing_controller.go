package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/services"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"github.com/yashrajoria/chat-billing/services/common/middleware"
)

// BillingController handles the authenticated billing endpoints. Errors are
// attached with c.Error and rendered by apperrors.ErrorMiddleware.
type BillingController struct {
	svc services.BillingService
}

func NewBillingController(svc services.BillingService) *BillingController {
	return &BillingController{svc: svc}
}

// CreateCheckout handles POST /api/stripe/checkout.
func (bc *BillingController) CreateCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidPlan, err))
		return
	}

	resp, err := bc.svc.CreateCheckout(c.Request.Context(), middleware.GetUserID(c), middleware.GetEmail(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePortal handles POST /api/stripe/portal.
func (bc *BillingController) CreatePortal(c *gin.Context) {
	resp, err := bc.svc.CreatePortal(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPlan handles GET /api/plan.
func (bc *BillingController) GetPlan(c *gin.Context) {
	rec, err := bc.svc.GetPlan(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
