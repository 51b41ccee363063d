package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/barpos-api/config"
	"github.com/kendall-kelly/barpos-api/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
	"gorm.io/gorm"
)

// LoginInput holds the credentials posted to the login endpoint
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Validate rejects blank credentials
func (in LoginInput) Validate() error {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return &BadRequestError{Code: "VALIDATION_ERROR", Message: "username and password are required"}
	}
	return nil
}

// LoginResult is returned on a successful login
type LoginResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

// tokenClaims are the private claims carried next to the registered ones
type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthService verifies staff credentials and issues access tokens
type AuthService struct {
	db       *gorm.DB
	signer   jose.Signer
	issuer   string
	audience string
	ttl      time.Duration
	logger   *zap.Logger
}

var authServiceInstance *AuthService

// NewAuthService creates an auth service signing HS256 tokens with the configured secret
func NewAuthService(db *gorm.DB, cfg *config.Config) (*AuthService, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(cfg.JWTSecret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	return &AuthService{
		db:       db,
		signer:   signer,
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.JWTExpiration,
		logger:   zap.L().Named("auth"),
	}, nil
}

// InitAuthService creates the process-wide auth service
func InitAuthService(db *gorm.DB, cfg *config.Config) (*AuthService, error) {
	service, err := NewAuthService(db, cfg)
	if err != nil {
		return nil, err
	}
	authServiceInstance = service
	return authServiceInstance, nil
}

// GetAuthService returns the process-wide auth service
func GetAuthService() *AuthService {
	return authServiceInstance
}

// SetAuthService sets the auth service instance (primarily for testing)
func SetAuthService(service *AuthService) {
	authServiceInstance = service
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func invalidCredentials() error {
	return &UnauthorizedError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}
}

// Login checks the credentials of an active user and issues a token
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", in.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, translateStoreError(err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.Info("rejected login", zap.String("username", in.Username))
		return nil, invalidCredentials()
	}
	if !user.IsActive {
		return nil, &UnauthorizedError{Code: "USER_INACTIVE", Message: "User account is disabled"}
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("username", user.Username), zap.String("role", user.Role))
	return &LoginResult{User: &user, AccessToken: token}, nil
}

// IssueToken signs an access token for user
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	registered := jwt.Claims{
		Issuer:   s.issuer,
		Subject:  user.ID.String(),
		Audience: jwt.Audience{s.audience},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.Signed(s.signer).
		Claims(registered).
		Claims(tokenClaims{Username: user.Username, Role: user.Role}).
		CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// SeedAdmin creates the admin user when no user with that username exists.
// An empty password disables seeding.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		s.logger.Warn("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return translateStoreError(err, "seed admin user")
	}

	s.logger.Info("seeded admin user", zap.String("username", username))
	return nil
}
