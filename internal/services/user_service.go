package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
)

// ErrForbidden is returned when a non-admin manages other operators
var ErrForbidden = errors.New("forbidden")

const minPasswordLen = 6

// UserService defines the interface for operator management
type UserService interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id uint) (models.User, error)
	CreateUser(ctx context.Context, actorID uint, req models.UserRequest) (models.User, error)
	ChangePassword(ctx context.Context, id uint, req models.PasswordRequest) error
	IsUserAdmin(ctx context.Context, userID uint) (bool, error)
}

// userService implements the UserService interface
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) UserService {
	return &userService{
		db: db,
	}
}

// GetUsers returns all users
func (s *userService) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	result := s.db.WithContext(ctx).Select("id, username, email, role").Order("username").Find(&users) // Exclude password field
	if result.Error != nil {
		return nil, directoryErr("list users", result.Error)
	}
	return users, nil
}

// GetUser returns a user by ID
func (s *userService) GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, directoryErr("user", err)
	}
	return user, nil
}

// CreateUser adds an operator; only admins may do so
func (s *userService) CreateUser(ctx context.Context, actorID uint, req models.UserRequest) (models.User, error) {
	admin, err := s.IsUserAdmin(ctx, actorID)
	if err != nil {
		return models.User{}, err
	}
	if !admin {
		return models.User{}, ErrForbidden
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return models.User{}, errs.Invalid("username is required")
	}
	if len(req.Password) < minPasswordLen {
		return models.User{}, errs.Invalid("password must have at least %d characters", minPasswordLen)
	}
	role := req.Role
	if role == "" {
		role = "operator"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}
	user := models.User{
		Username:       req.Username,
		HashedPassword: string(hashed),
		Email:          req.Email,
		Role:           role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, directoryErr("create user", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *userService) ChangePassword(ctx context.Context, id uint, req models.PasswordRequest) error {
	if len(req.NewPassword) < minPasswordLen {
		return errs.Invalid("password must have at least %d characters", minPasswordLen)
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("hashed_password", string(hashed)).Error; err != nil {
		return directoryErr("change password", err)
	}
	return nil
}

// IsUserAdmin checks if a user has admin role
func (s *userService) IsUserAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Role == "admin", nil
}
