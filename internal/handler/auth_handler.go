package handler

import (
	"context"
	"net/http"

	"taskify/internal/auth"
	"taskify/internal/model"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthService is implemented by *service.AuthService.
type AuthService interface {
	Register(ctx context.Context, in service.Credentials) (string, *model.User, error)
	Login(ctx context.Context, in service.Credentials) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Verify(token string) (string, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary      Register a new user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Credentials"
// @Success      201   {object}  AuthResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	token, _, err := h.svc.Register(c.Request.Context(), service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		respondError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login godoc
// @Summary      Log in and receive a token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Credentials"
// @Success      200   {object}  TokenResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		respondError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair))
}

// RefreshToken godoc
// @Summary      Rotate the token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      RefreshTokenRequest  true  "Refresh token"
// @Success      200   {object}  TokenResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "refresh token", err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair))
}

// Logout godoc
// @Summary      Invalidate a refresh token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      RefreshTokenRequest  true  "Refresh token"
// @Success      200   {object}  MessageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Verify godoc
// @Summary      Check an access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      VerifyRequest  true  "Access token"
// @Success      200   {object}  VerifyResponse
// @Failure      401   {object}  VerifyResponse
// @Router       /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, VerifyResponse{Valid: false})
		return
	}

	userID, err := h.svc.Verify(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, VerifyResponse{Valid: false})
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{Valid: true, UserID: userID})
}

func tokenResponse(pair auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}
