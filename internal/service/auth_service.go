package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"gw-currency-rates/internal/storages"
)

// AuthService регистрация и аутентификация пользователей
type AuthService struct {
	users  storages.UserStorage
	logger *logrus.Logger
}

func NewAuthService(users storages.UserStorage, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:  users,
		logger: logger,
	}
}

// RegisterUser регистрирует нового пользователя
func (s *AuthService) RegisterUser(ctx context.Context, username, email, password string) (*storages.User, error) {
	if err := s.ensureFree(ctx, username, email); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Errorf("Failed to hash password: %v", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &storages.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storages.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infof("User registered successfully: %s", username)
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username %s", ErrUserExists, username)
	} else if !errors.Is(err, storages.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email %s", ErrUserExists, email)
	} else if !errors.Is(err, storages.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	return nil
}

// AuthenticateUser проверяет пароль и возвращает пользователя
func (s *AuthService) AuthenticateUser(ctx context.Context, username, password string) (*storages.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warnf("Failed authentication attempt for user: %s", username)
		return nil, ErrInvalidCredentials
	}

	s.logger.Infof("User authenticated successfully: %s", username)
	return user, nil
}

// GetUser возвращает пользователя по ID
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*storages.User, error) {
	return s.users.GetUserByID(ctx, userID)
}
