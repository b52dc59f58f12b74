package usecase

import (
	"errors"
	"time"

	"mailsync-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase guards the administrative API: a single operator credential
// exchanged for a short-lived bearer token.
type AuthUsecase interface {
	Login(password string) (string, error)
	ValidateToken(tokenString string) error
}

type authUsecase struct {
	config *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{
		config: cfg,
	}
}

func (u *authUsecase) Login(password string) (string, error) {
	if u.config.AdminPasswordHash == "" {
		return "", errors.New("admin access not configured")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.config.AdminPasswordHash), []byte(password)); err != nil {
		return "", errors.New("invalid password")
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid token claims")
	}

	if role, ok := claims["role"].(string); !ok || role != "admin" {
		return errors.New("invalid token claims")
	}

	return nil
}

// HashPassword hashes a password using bcrypt. Used when provisioning
// ADMIN_PASSWORD_HASH values.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
