package notification

import (
	"net/http"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// @Summary      List notifications
// @Description  Personal notifications plus broadcasts for the caller's role, newest first.
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query int false "Page size"
// @Param        offset  query int false "Offset"
// @Success      200 {array}  notification.Notification
// @Failure      401 {object} api.ErrorResponse
// @Router       /notifications [get]
func (h *Handler) List(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	limit, offset := api.Pagination(c, 50)
	items, err := h.repo.ListFor(c.Request.Context(), id.ID, id.Role, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// @Summary      Mark notification read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Notification ID"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /notifications/{id}/read [patch]
func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	notificationID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), notificationID, id.ID, id.Role); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "notification marked as read"})
}

// @Summary      Mark all notifications read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]int64
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	n, err := h.repo.MarkAllRead(c.Request.Context(), id.ID, id.Role)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// @Summary      Delete notification
// @Tags         notifications
// @Security     BearerAuth
// @Param        id path int true "Notification ID"
// @Success      204
// @Failure      404 {object} api.ErrorResponse
// @Router       /notifications/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}
	notificationID, ok := api.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), notificationID, id.ID); err != nil {
		api.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
