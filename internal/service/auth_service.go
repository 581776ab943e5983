package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/speed-dating/internal/collab"
	"github.com/dom/speed-dating/internal/config"
	"github.com/dom/speed-dating/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const refreshTokenTTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrBanned              = errors.New("user is banned")
)

// UserStore is the read side of the user cache.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Put(ctx context.Context, session *domain.UserSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// AuthService verifies access tokens and manages login sessions for accounts
// created elsewhere.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	bans     collab.BanChecker
	cfg      *config.Config
}

func NewAuthService(users UserStore, sessions SessionStore, bans collab.BanChecker, cfg *config.Config) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		bans:     bans,
		cfg:      cfg,
	}
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// IssueTokens starts a new login session for the user, replacing older ones.
// The refresh token is "<session id>.<secret>"; only a bcrypt hash of the
// secret is stored.
func (s *AuthService) IssueTokens(ctx context.Context, userID uuid.UUID) (*AuthResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	secret := uuid.New().String()
	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: string(hashedSecret),
		ExpiresAt:        now.Add(refreshTokenTTL),
		CreatedAt:        now,
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: session.ID.String() + "." + secret,
	}, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.DisplayName,
		"exp":  time.Now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return &claims, nil
	}

	return nil, ErrInvalidToken
}

// UserIDFromToken validates the token and returns its subject.
func (s *AuthService) UserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, ok := (*claims)["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// Authenticate resolves a connection's token to an existing, unbanned user.
// The user ends up in the user cache, where the matchmaking loop can see it.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	userID, err := s.UserIDFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.CheckBanned(ctx, userID); err != nil {
		return nil, err
	}

	return user, nil
}

// CheckBanned returns ErrBanned when the moderation collaborator has banned the user.
func (s *AuthService) CheckBanned(ctx context.Context, userID uuid.UUID) error {
	banned, err := s.bans.IsBanned(ctx, userID)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}
	return nil
}

// Refresh exchanges a refresh token for a new token pair. The old session is
// consumed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	idPart, secret, ok := strings.Cut(refreshToken, ".")
	if !ok || secret == "" {
		return nil, ErrInvalidRefreshToken
	}
	sessionID, err := uuid.Parse(idPart)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(session.RefreshTokenHash), []byte(secret)); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if session.Expired(time.Now()) {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, domain.ErrSessionExpired
	}

	banned, err := s.bans.IsBanned(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, ErrBanned
	}

	return s.IssueTokens(ctx, session.UserID)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}
