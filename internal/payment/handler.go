package payment

import (
	"io"
	"net/http"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

type WebhookResponse struct {
	Received bool `json:"received"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Checkout godoc
// @Summary      Start Stripe Checkout
// @Description  Returns the hosted checkout URL, or {free:true} when the session costs nothing.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      payment.CheckoutRequest  true  "Session to pay for"
// @Success      200      {object}  payment.CheckoutResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /payments/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	var req CheckoutRequest
	if !api.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateCheckout(c.Request.Context(), actor, req.SessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateIntent godoc
// @Summary      Create PaymentIntent
// @Description  For embedded card forms. Returns the client secret, or {free:true}.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      payment.CheckoutRequest  true  "Session to pay for"
// @Success      200      {object}  payment.IntentResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /payments/create-intent [post]
func (h *Handler) CreateIntent(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	var req CheckoutRequest
	if !api.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreatePaymentIntent(c.Request.Context(), actor, req.SessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook godoc
// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header against the raw body.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Stripe signature"
// @Success      200               {object}  payment.WebhookResponse
// @Failure      400               {object}  api.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "could not read request body"})
		return
	}

	if _, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}

// Mine godoc
// @Summary      My payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   payment.Payment
// @Router       /payments/mine [get]
func (h *Handler) Mine(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	limit, offset := api.Pagination(c, 20)
	payments, err := h.service.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// AdminList godoc
// @Summary      All payments
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   payment.Payment
// @Failure      403     {object}  api.ErrorResponse
// @Router       /admin/payments [get]
func (h *Handler) AdminList(c *gin.Context) {
	limit, offset := api.Pagination(c, 50)
	payments, err := h.service.ListPayments(c.Request.Context(), limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// AdminRevenue godoc
// @Summary      Revenue totals
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  payment.Revenue
// @Failure      403  {object}  api.ErrorResponse
// @Router       /admin/revenue [get]
func (h *Handler) AdminRevenue(c *gin.Context) {
	rev, err := h.service.Revenue(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rev)
}
