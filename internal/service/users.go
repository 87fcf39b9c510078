// users.go — сервис учётных записей пользователей.
// Пароли хранятся только в виде bcrypt-хэшей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/storage"
)

// Ошибки сервиса пользователей.
var (
	// ErrUsernameTaken — имя пользователя уже занято.
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
)

// UserService — сервис учётных записей.
type UserService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(store storage.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Register создаёт пользователя с bcrypt-хэшем пароля.
func (s *UserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("имя пользователя не может быть пустым")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("пароль должен содержать не менее 8 символов")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, nil
}

// Authenticate проверяет имя пользователя и пароль.
// Возвращает ErrInvalidCredentials и при неизвестном пользователе,
// и при неверном пароле, не раскрывая, что именно не совпало.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
