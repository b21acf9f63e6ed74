package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/chat-billing/services/billing-service/controllers"
)

// RegisterBillingRoutes mounts the webhook (signature-authenticated) and the
// user-facing billing endpoints behind auth.
func RegisterBillingRoutes(r *gin.Engine, wc *controllers.WebhookController, bc *controllers.BillingController, auth gin.HandlerFunc, limit gin.HandlerFunc) {
	r.POST("/api/stripe/webhook", wc.HandleWebhook)

	api := r.Group("/api")
	api.Use(auth)
	api.GET("/plan", bc.GetPlan)

	stripeGroup := api.Group("/stripe")
	stripeGroup.Use(limit)
	stripeGroup.POST("/checkout", bc.CreateCheckout)
	stripeGroup.POST("/portal", bc.CreatePortal)
}
