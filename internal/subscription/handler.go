package subscription

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

// ListMine godoc
// @Summary      Active subscriptions
// @Description  Unexpired subscriptions bought by the calling member, latest expiry first.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   subscription.Subscription
// @Failure      401  {object}  api.ErrorResponse
// @Router       /subscriptions [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.RespondError(c, auth.ErrHeaderRequired)
		return
	}

	subs, err := h.repo.ListActiveByMember(c.Request.Context(), userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, subs)
}
