package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
	"github.com/timehacker/api/internal/service"
	ctxutil "github.com/timehacker/api/pkg/context"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetProfile")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}

	profile, err := h.profileService.Get(ctx, id.ID)
	if err != nil {
		respondError(ctx, c, "Failed to get profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateProfile")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.UpdateProfileRequest](ctx, c)
	if !ok {
		return
	}

	profile, err := h.profileService.Update(ctx, id.ID, *req)
	if err != nil {
		respondError(ctx, c, "Failed to update profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
