// Пакет memstore — in-memory реализация хранилища метаданных.
//
// Хранит записи в map под sync.RWMutex: конкурентные запросы получают
// детерминированный порядок операций. Не персистентный — содержимое
// живёт до рестарта процесса. Используется в разработке и тестах;
// production-вариант — pgstore.
package memstore

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/storage"
)

// fileEntry — запись плюс порядковый номер вставки.
// seq разрешает сортировку записей с одинаковым временем загрузки:
// последняя вставленная считается новейшей.
type fileEntry struct {
	record *model.FileRecord
	seq    uint64
}

// Store — потокобезопасное in-memory хранилище метаданных.
type Store struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry // id → entry
	users   map[string]*model.User
	nextSeq uint64
	logger  *slog.Logger
}

// New создаёт пустое in-memory хранилище.
func New(logger *slog.Logger) *Store {
	return &Store{
		files:  make(map[string]*fileEntry),
		users:  make(map[string]*model.User),
		logger: logger.With(slog.String("component", "memstore")),
	}
}

// CreateFile назначает UUID и время загрузки, сохраняет запись.
func (s *Store) CreateFile(_ context.Context, params storage.CreateFileParams) (*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &model.FileRecord{
		ID:               uuid.New().String(),
		StoredFilename:   params.StoredFilename,
		OriginalFilename: params.OriginalFilename,
		MimeType:         params.MimeType,
		Size:             params.Size,
		Category:         params.Category,
		UploadedAt:       time.Now().UTC(),
	}
	s.nextSeq++
	s.files[record.ID] = &fileEntry{record: record, seq: s.nextSeq}

	// Возвращаем копию, чтобы внешний код не мог изменить хранимую запись
	copied := *record
	return &copied, nil
}

// GetFile возвращает копию записи по ID или storage.ErrNotFound.
func (s *Store) GetFile(_ context.Context, id string) (*model.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *entry.record
	return &copied, nil
}

// GetFiles возвращает все записи, новые первые.
func (s *Store) GetFiles(ctx context.Context) ([]*model.FileRecord, error) {
	return s.SearchFiles(ctx, storage.SearchParams{})
}

// GetFilesByCategory возвращает записи категории, новые первые.
func (s *Store) GetFilesByCategory(ctx context.Context, category model.Category) ([]*model.FileRecord, error) {
	return s.SearchFiles(ctx, storage.SearchParams{Category: string(category)})
}

// SearchFiles фильтрует записи: подстрока имени (case-insensitive),
// точная категория, подстрока MIME-типа. Пустой фильтр пропускает всё.
func (s *Store) SearchFiles(_ context.Context, params storage.SearchParams) ([]*model.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(params.Query)

	matched := make([]*fileEntry, 0, len(s.files))
	for _, entry := range s.files {
		record := entry.record
		if queryLower != "" && !strings.Contains(strings.ToLower(record.OriginalFilename), queryLower) {
			continue
		}
		if params.Category != "" && string(record.Category) != params.Category {
			continue
		}
		if params.MimeType != "" && !strings.Contains(record.MimeType, params.MimeType) {
			continue
		}
		matched = append(matched, entry)
	}

	// Новые первые; при равном времени — последняя вставка первой
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].record, matched[j].record
		if !a.UploadedAt.Equal(b.UploadedAt) {
			return a.UploadedAt.After(b.UploadedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	result := make([]*model.FileRecord, 0, len(matched))
	for _, entry := range matched {
		copied := *entry.record
		result = append(result, &copied)
	}
	return result, nil
}

// DeleteFile удаляет запись. Возвращает true, если запись существовала.
func (s *Store) DeleteFile(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return false, nil
	}
	delete(s.files, id)
	return true, nil
}

// CreateUser создаёт пользователя. Имя должно быть уникальным.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, storage.ErrUsernameTaken
		}
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

// GetUser возвращает пользователя по ID или storage.ErrNotFound.
func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername возвращает пользователя по имени или storage.ErrNotFound.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Count возвращает количество записей файлов (для тестов и health).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Ping всегда успешен: хранилище в памяти процесса.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close — нечего освобождать.
func (s *Store) Close() {}
