package services

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vikasavnish/tradehub/internal/models"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// tokenTTL is how long an issued access token stays valid
const tokenTTL = 60 * time.Minute

// AuthService defines the interface for authentication operations
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GenerateToken(user models.User, secretKey []byte) (string, error)
	ParseToken(token string, secretKey []byte) (*models.Claims, error)
}

// authService implements the AuthService interface
type authService struct {
	db *gorm.DB
}

// NewAuthService creates a new authentication service
func NewAuthService(db *gorm.DB) AuthService {
	return &authService{
		db: db,
	}
}

// Authenticate verifies user credentials and returns the user if valid
func (s *authService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, errors.Wrap(result.Error, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// GenerateToken creates a new JWT token for the user
func (s *authService) GenerateToken(user models.User, secretKey []byte) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		UserID:   user.ID,
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(tokenTTL).Unix(),
			IssuedAt:  now.Unix(),
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return tokenString, nil
}

// ParseToken validates an HS256 token and returns its claims
func (s *authService) ParseToken(tokenString string, secretKey []byte) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
