package session

import (
	"context"
	"net/http"
	"strings"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Create session
// @Description  Trainers create sessions for themselves. Admins must pass trainer_id.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      session.CreateSessionRequest  true  "Session data"
// @Success      201      {object}  session.Session
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Router       /sessions [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	var req CreateSessionRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.CreateSession(c.Request.Context(), actor, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// ListPublic godoc
// @Summary      List open sessions
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        type  query     string  false  "Session type"
// @Param        date  query     string  false  "Date (YYYY-MM-DD)"
// @Success      200   {array}   session.Session
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Router       /sessions/public [get]
func (h *Handler) ListPublic(c *gin.Context) {
	filter := ListFilter{Type: strings.TrimSpace(c.Query("type"))}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			api.RespondError(c, ErrInvalidDate)
			return
		}
		filter.Date = &d
	}

	sessions, err := h.service.ListPublic(c.Request.Context(), filter)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// ListMine godoc
// @Summary      List my sessions
// @Description  Members get the sessions they joined, trainers the sessions they run.
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   session.Session
// @Failure      401  {object}  api.ErrorResponse
// @Router       /sessions/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	sessions, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// Get godoc
// @Summary      Get session
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  session.Session
// @Failure      404  {object}  api.ErrorResponse
// @Router       /sessions/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	sess, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Update godoc
// @Summary      Update session
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "Session ID"
// @Param        request  body      session.UpdateSessionRequest  true  "Fields to change"
// @Success      200      {object}  session.Session
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /sessions/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.UpdateSession(c.Request.Context(), actor, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Delete godoc
// @Summary      Delete session
// @Description  Only sessions without enrollments or payments can be deleted.
// @Tags         sessions
// @Security     BearerAuth
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  api.MessageResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /sessions/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), actor, id); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "session deleted"})
}

// Join godoc
// @Summary      Join session
// @Description  Enrolls the calling member and unlocks chat with the trainer.
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  session.Session
// @Failure      400  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /sessions/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	h.act(c, h.service.JoinSession)
}

// Start godoc
// @Summary      Start session
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  session.Session
// @Failure      409  {object}  api.ErrorResponse
// @Router       /sessions/{id}/start [post]
func (h *Handler) Start(c *gin.Context) {
	h.act(c, h.service.StartSession)
}

// Complete godoc
// @Summary      Complete session
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  session.Session
// @Failure      409  {object}  api.ErrorResponse
// @Router       /sessions/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	h.act(c, h.service.CompleteSession)
}

// Cancel godoc
// @Summary      Cancel session
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  session.Session
// @Failure      409  {object}  api.ErrorResponse
// @Router       /sessions/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	h.act(c, h.service.CancelSession)
}

type actionFunc func(ctx context.Context, actor auth.Identity, id int64) (*Session, error)

func (h *Handler) act(c *gin.Context, fn actionFunc) {
	actor, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	id, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	sess, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}
