package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/apperr"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

const tokenTTL = 24 * time.Hour

type RegisterInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Sport    types.Sport `json:"sport,omitempty"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

// TokenClaims is what middleware extracts from a verified token.
type TokenClaims struct {
	UserID uuid.UUID
	Role   types.Role
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// VerifyToken parses and validates a bearer token, returning the identity
	// it asserts. Any parse, signature, or expiry failure maps to
	// apperr.ErrUnauthorized.
	VerifyToken(tokenString string) (*TokenClaims, error)
}

type authService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	secret []byte
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo, secret string) AuthService {
	return &authService{
		db:     db,
		log:    baseLog.With("service", "AuthService"),
		users:  users,
		secret: []byte(secret),
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", apperr.ErrInvalidArgument)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperr.ErrInvalidArgument)
	}
	exists, err := s.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", apperr.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	sport := input.Sport
	if sport == "" {
		sport = types.SportGeneral
	}
	user := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(input.Name),
		Role:         types.RoleAthlete,
		Sport:        sport,
		Timezone:     "UTC",
	}
	created, err := s.users.Create(ctx, nil, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(created)
	if err != nil {
		return nil, err
	}
	s.log.Info("User registered", "user_id", created.ID, "email", email)
	return &AuthResult{Token: token, User: created}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, nil, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrUnauthorized
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) issueToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	return &TokenClaims{UserID: userID, Role: types.Role(role)}, nil
}
