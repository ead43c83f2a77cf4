package service

import (
	"context"
	"strings"

	"taskify/internal/auth"
	"taskify/internal/model"

	"github.com/google/uuid"
)

type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthService is the minimal identity provider: registration, login, refresh-token
// rotation and token verification.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenManager
}

func NewAuthService(users UserStore, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates the user and returns an access token for it.
func (s *AuthService) Register(ctx context.Context, in Credentials) (string, *model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return "", nil, err
	}

	existing, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return "", nil, translate("register", err)
	}
	if existing != nil {
		return "", nil, &Error{Kind: KindValidation, Code: "username_taken", Message: "username already taken"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", nil, InternalError("register", err)
	}
	user := &model.User{
		ID:             uuid.New(),
		Username:       in.Username,
		HashedPassword: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", nil, translate("register", err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID.String(), user.Username)
	if err != nil {
		return "", nil, InternalError("register", err)
	}
	return token, user, nil
}

// Login checks the password and issues a fresh token pair. The refresh token is
// stored on the user, replacing any previous one.
func (s *AuthService) Login(ctx context.Context, in Credentials) (auth.TokenPair, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return auth.TokenPair{}, ValidationError("username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return auth.TokenPair{}, translate("login", err)
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, in.Password) {
		return auth.TokenPair{}, &Error{Kind: KindValidation, Code: "invalid_credentials", Message: "invalid credentials"}
	}
	return s.issue(ctx, user, "login")
}

// Refresh rotates the token pair. A token that verifies but is not the one
// currently stored on the user is stale and rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	if refreshToken == "" {
		return auth.TokenPair{}, ValidationError("refreshToken is required")
	}
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return auth.TokenPair{}, ForbiddenError("invalid refresh token")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return auth.TokenPair{}, ForbiddenError("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return auth.TokenPair{}, translate("refresh", err)
	}
	if user == nil || user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return auth.TokenPair{}, ForbiddenError("invalid refresh token")
	}
	return s.issue(ctx, user, "refresh")
}

// Logout forgets the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ValidationError("refreshToken is required")
	}
	if err := s.users.ClearRefreshToken(ctx, refreshToken); err != nil {
		return translate("logout", err)
	}
	return nil
}

// Verify resolves an access token to the user id it was issued for.
func (s *AuthService) Verify(token string) (string, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return "", UnauthorizedError("invalid or expired token")
	}
	return claims.UserID, nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User, op string) (auth.TokenPair, error) {
	pair, err := s.tokens.GeneratePair(user.ID.String(), user.Username)
	if err != nil {
		return auth.TokenPair{}, InternalError(op, err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return auth.TokenPair{}, translate(op, err)
	}
	return pair, nil
}
