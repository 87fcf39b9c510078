// Пакет storage — контракт хранилища метаданных filedepot.
//
// Интерфейс Store реализуют два взаимозаменяемых backend'а:
// memstore (in-memory, для разработки и тестов) и pgstore (PostgreSQL).
// Выбор backend'а — при старте через конфигурацию (FD_STORAGE_BACKEND),
// без runtime-инспекции типов.
package storage

import (
	"context"
	"errors"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
)

// Ошибки слоя хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrUsernameTaken — имя пользователя уже занято.
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)

// CreateFileParams — входные данные для создания записи файла.
// ID и UploadedAt назначает хранилище.
type CreateFileParams struct {
	// StoredFilename — сгенерированное имя файла в content directory
	StoredFilename string
	// OriginalFilename — имя файла, заданное пользователем
	OriginalFilename string
	// MimeType — MIME-тип из allow-list
	MimeType string
	// Size — размер файла в байтах
	Size int64
	// Category — категория файла
	Category model.Category
}

// SearchParams — параметры поиска файлов.
// Фильтры опциональны: пустая строка = фильтр не применяется.
type SearchParams struct {
	// Query — подстрока оригинального имени файла (case-insensitive).
	// Пустой запрос совпадает со всеми записями.
	Query string
	// Category — точное совпадение категории ("" = без фильтра)
	Category string
	// MimeType — подстрока MIME-типа ("" = без фильтра)
	MimeType string
}

// Store — контракт хранилища метаданных.
// Все операции независимо атомарны на уровне backend'а;
// межзаписных транзакций нет. Списки всегда отсортированы
// по времени загрузки, новые первые.
type Store interface {
	// CreateFile назначает ID и время загрузки, сохраняет запись
	// и возвращает её целиком.
	CreateFile(ctx context.Context, params CreateFileParams) (*model.FileRecord, error)
	// GetFile возвращает запись по ID или ErrNotFound.
	GetFile(ctx context.Context, id string) (*model.FileRecord, error)
	// GetFiles возвращает все записи, новые первые.
	GetFiles(ctx context.Context) ([]*model.FileRecord, error)
	// GetFilesByCategory возвращает записи категории, новые первые.
	GetFilesByCategory(ctx context.Context, category model.Category) ([]*model.FileRecord, error)
	// SearchFiles возвращает записи, удовлетворяющие всем заданным
	// фильтрам, новые первые.
	SearchFiles(ctx context.Context, params SearchParams) ([]*model.FileRecord, error)
	// DeleteFile удаляет запись. Возвращает true, если запись
	// существовала; false — если удалять было нечего (не ошибка).
	DeleteFile(ctx context.Context, id string) (bool, error)

	// CreateUser создаёт пользователя с уже захэшированным паролем.
	// Возвращает ErrUsernameTaken при конфликте имени.
	CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error)
	// GetUser возвращает пользователя по ID или ErrNotFound.
	GetUser(ctx context.Context, id string) (*model.User, error)
	// GetUserByUsername возвращает пользователя по имени или ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Ping проверяет доступность backend'а (readiness probe).
	Ping(ctx context.Context) error
	// Close освобождает ресурсы backend'а.
	Close()
}
