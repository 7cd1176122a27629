package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timehacker/api/internal/constants"
	"github.com/timehacker/api/internal/dto"
	"github.com/timehacker/api/internal/middleware"
	"github.com/timehacker/api/internal/service"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Register")

	req, ok := bindBody[dto.RegisterRequest](ctx, c)
	if !ok {
		return
	}

	user, err := h.authService.Register(ctx, *req)
	if err != nil {
		respondError(ctx, c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Token is the password login
func (h *AuthHandler) Token(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Token")

	req, ok := bindBody[dto.LoginRequest](ctx, c)
	if !ok {
		return
	}

	pair, err := h.authService.Login(ctx, *req)
	if err != nil {
		respondError(ctx, c, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Refresh")

	req, ok := bindBody[dto.RefreshTokenRequest](ctx, c)
	if !ok {
		return
	}

	logger.DebugWithContext(ctx, "Token refresh attempt").
		Int("token_length", len(req.RefreshToken)).
		Log()

	resp, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		respondError(ctx, c, "Token refresh failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body. Behind OptionalAuth an
// authenticated caller without a token logs out of every session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Logout")

	req, ok := bindBody[dto.LogoutRequest](ctx, c)
	if !ok {
		return
	}

	var userID *uuid.UUID
	if id, ok := middleware.CurrentIdentity(c); ok {
		userID = &id.ID
	}

	if err := h.authService.Logout(ctx, userID, req.RefreshToken); err != nil {
		respondError(ctx, c, "Logout failed", err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgLogoutSuccess})
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "LogoutAll")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}

	if err := h.authService.Logout(ctx, &id.ID, ""); err != nil {
		respondError(ctx, c, "Logout everywhere failed", err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: constants.MsgLogoutSuccess})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ForgotPassword")

	req, ok := bindBody[dto.PasswordResetRequest](ctx, c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.authService.RequestPasswordReset(ctx, req.Email, req.SiteURL))
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ResetPassword")

	req, ok := bindBody[dto.PasswordResetConfirm](ctx, c)
	if !ok {
		return
	}

	resp, err := h.authService.ConfirmPasswordReset(ctx, req.Token, req.NewPassword)
	if err != nil {
		respondError(ctx, c, "Password reset failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
