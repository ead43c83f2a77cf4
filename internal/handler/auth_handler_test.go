package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskify/internal/auth"
	"taskify/internal/handler"
	"taskify/internal/model"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.Credentials) (string, *model.User, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(1).(*model.User)
	return args.String(0), user, args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, in service.Credentials) (auth.TokenPair, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) Verify(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func setupAuthTest() (*gin.Engine, *MockAuthService) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockSvc := new(MockAuthService)
	h := handler.NewAuthHandler(mockSvc)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh-token", h.RefreshToken)
	r.POST("/auth/logout", h.Logout)
	r.POST("/auth/verify", h.Verify)
	return r, mockSvc
}

func postJSON(router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegister_Success(t *testing.T) {
	router, mockSvc := setupAuthTest()
	creds := service.Credentials{Username: "alice", Password: "password123"}
	mockSvc.On("Register", mock.Anything, creds).Return("access-token", &model.User{ID: uuid.New(), Username: "alice"}, nil)

	resp := postJSON(router, "/auth/register", handler.RegisterRequest{Username: "alice", Password: "password123"})

	assert.Equal(t, http.StatusCreated, resp.Code)
	var response handler.AuthResponse
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "access-token", response.Token)
	mockSvc.AssertExpectations(t)
}

func TestRegister_UsernameTaken(t *testing.T) {
	router, mockSvc := setupAuthTest()
	taken := &service.Error{Kind: service.KindValidation, Code: "username_taken", Message: "username already taken"}
	mockSvc.On("Register", mock.Anything, mock.Anything).Return("", nil, taken)

	resp := postJSON(router, "/auth/register", handler.RegisterRequest{Username: "alice", Password: "password123"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var response handler.ErrorResponse
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "username already taken", response.Error)
	assert.Equal(t, "validation_error", response.Kind)
	assert.Equal(t, "username_taken", response.Code)
}

func TestRegister_InvalidInput(t *testing.T) {
	router, mockSvc := setupAuthTest()

	resp := postJSON(router, "/auth/register", map[string]string{"username": "alice"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	mockSvc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestLogin_ReturnsTokenPair(t *testing.T) {
	router, mockSvc := setupAuthTest()
	mockSvc.On("Login", mock.Anything, service.Credentials{Username: "alice", Password: "password123"}).
		Return(auth.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600}, nil)

	resp := postJSON(router, "/auth/login", handler.LoginRequest{Username: "alice", Password: "password123"})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"accessToken":"a","refreshToken":"r","expiresIn":3600}`, resp.Body.String())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, mockSvc := setupAuthTest()
	mockSvc.On("Login", mock.Anything, mock.Anything).
		Return(auth.TokenPair{}, &service.Error{Kind: service.KindValidation, Code: "invalid_credentials", Message: "invalid credentials"})

	resp := postJSON(router, "/auth/login", handler.LoginRequest{Username: "alice", Password: "nope-nope"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid credentials")
}

func TestRefreshToken_Stale(t *testing.T) {
	router, mockSvc := setupAuthTest()
	mockSvc.On("Refresh", mock.Anything, "old").Return(auth.TokenPair{}, service.ForbiddenError("invalid refresh token"))

	resp := postJSON(router, "/auth/refresh-token", handler.RefreshTokenRequest{RefreshToken: "old"})

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLogout(t *testing.T) {
	router, mockSvc := setupAuthTest()
	mockSvc.On("Logout", mock.Anything, "r").Return(nil)

	resp := postJSON(router, "/auth/logout", handler.RefreshTokenRequest{RefreshToken: "r"})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Logged out")
	mockSvc.AssertExpectations(t)
}

func TestVerify(t *testing.T) {
	router, mockSvc := setupAuthTest()
	mockSvc.On("Verify", "good").Return("user-1", nil)
	mockSvc.On("Verify", "bad").Return("", service.UnauthorizedError("invalid or expired token"))

	resp := postJSON(router, "/auth/verify", handler.VerifyRequest{Token: "good"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"valid":true,"userId":"user-1"}`, resp.Body.String())

	resp = postJSON(router, "/auth/verify", handler.VerifyRequest{Token: "bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"valid":false}`, resp.Body.String())
}
