package chat

import (
	"net/http"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"
	"fitstudio/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	service  Service
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(service Service, hub *Hub, allowedOrigin string) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: Upgrader(allowedOrigin),
	}
}

// ListThreads godoc
// @Summary      List conversations
// @Description  One row per member, most recent message first.
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   chat.Thread
// @Failure      403  {object}  api.ErrorResponse
// @Router       /messages/threads [get]
func (h *Handler) ListThreads(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	threads, err := h.service.ListThreads(c.Request.Context(), actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, threads)
}

// ListMessages godoc
// @Summary      Conversation history
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        peerID  path   int  true   "Trainer ID for members, member ID for trainers"
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Offset from the newest message"
// @Success      200     {array}   chat.Message
// @Failure      403     {object}  api.ErrorResponse
// @Router       /messages/{peerID} [get]
func (h *Handler) ListMessages(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	peerID, ok := api.ParamID(c, "peerID")
	if !ok {
		return
	}

	limit, offset := api.Pagination(c, 50)
	msgs, err := h.service.ListMessages(c.Request.Context(), actor, peerID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// SendMessage godoc
// @Summary      Send message
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        peerID   path      int                      true  "Trainer ID for members, member ID for trainers"
// @Param        request  body      chat.SendMessageRequest  true  "Message"
// @Success      201      {object}  chat.Message
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Router       /messages/{peerID} [post]
func (h *Handler) SendMessage(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	peerID, ok := api.ParamID(c, "peerID")
	if !ok {
		return
	}

	var req SendMessageRequest
	if !api.BindJSON(c, &req) {
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), actor, peerID, req.Text)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// GetAccess godoc
// @Summary      Chat access window
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        peerID  path      int  true  "Trainer ID for members, member ID for trainers"
// @Success      200     {object}  chat.AccessStatus
// @Router       /messages/{peerID}/access [get]
func (h *Handler) GetAccess(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	peerID, ok := api.ParamID(c, "peerID")
	if !ok {
		return
	}

	status, err := h.service.GetAccess(c.Request.Context(), actor, peerID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ServeWS godoc
// @Summary      Realtime message stream
// @Description  Upgrades to a websocket that receives {type:"message"} events.
// @Tags         messages
// @Security     BearerAuth
// @Router       /messages/ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade failed", "account_id", actor.ID)
		return
	}

	h.hub.Attach(actor.ID, conn)
}
