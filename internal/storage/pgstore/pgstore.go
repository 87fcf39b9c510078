// Пакет pgstore — PostgreSQL-реализация хранилища метаданных.
// Все запросы — чистый SQL через pgx, без ORM. Межзаписных транзакций
// нет: каждая операция атомарна на уровне одного statement'а.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/storage"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, stored_filename, original_filename, mime_type, size, category, uploaded_at`

// DBTX — интерфейс выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — PostgreSQL-хранилище метаданных.
type Store struct {
	pool   *pgxpool.Pool
	db     DBTX
	logger *slog.Logger
}

// New создаёт хранилище поверх готового пула подключений.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		pool:   pool,
		db:     pool,
		logger: logger.With(slog.String("component", "pgstore")),
	}
}

// CreateFile вставляет запись; id генерируется здесь, uploaded_at —
// сервером БД. Возвращает запись целиком.
func (s *Store) CreateFile(ctx context.Context, params storage.CreateFileParams) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO files (id, stored_filename, original_filename, mime_type, size, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, fileColumns)

	id := uuid.New().String()
	record := &model.FileRecord{}
	err := s.db.QueryRow(ctx, query,
		id, params.StoredFilename, params.OriginalFilename,
		params.MimeType, params.Size, string(params.Category),
	).Scan(
		&record.ID, &record.StoredFilename, &record.OriginalFilename,
		&record.MimeType, &record.Size, &record.Category, &record.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return record, nil
}

// GetFile возвращает запись по UUID или storage.ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	record := &model.FileRecord{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.StoredFilename, &record.OriginalFilename,
		&record.MimeType, &record.Size, &record.Category, &record.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи файла: %w", err)
	}
	return record, nil
}

// GetFiles возвращает все записи, новые первые.
func (s *Store) GetFiles(ctx context.Context) ([]*model.FileRecord, error) {
	return s.SearchFiles(ctx, storage.SearchParams{})
}

// GetFilesByCategory возвращает записи категории, новые первые.
func (s *Store) GetFilesByCategory(ctx context.Context, category model.Category) ([]*model.FileRecord, error) {
	return s.SearchFiles(ctx, storage.SearchParams{Category: string(category)})
}

// SearchFiles выполняет поиск с динамическим WHERE:
// ILIKE-подстрока имени, точная категория, подстрока MIME-типа.
func (s *Store) SearchFiles(ctx context.Context, params storage.SearchParams) ([]*model.FileRecord, error) {
	where, args := buildSearchWhere(params)

	query := fmt.Sprintf(
		`SELECT %s FROM files %s ORDER BY uploaded_at DESC, id DESC`,
		fileColumns, where,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		record := &model.FileRecord{}
		if err := rows.Scan(
			&record.ID, &record.StoredFilename, &record.OriginalFilename,
			&record.MimeType, &record.Size, &record.Category, &record.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи файла: %w", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	return result, nil
}

// DeleteFile удаляет запись. Возвращает true, если запись существовала.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления записи файла: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateUser создаёт пользователя. Конфликт имени → storage.ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error) {
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)`,
		user.ID, user.Username, user.PasswordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation (username занят)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, storage.ErrUsernameTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return user, nil
}

// GetUser возвращает пользователя по UUID или storage.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash FROM users WHERE id = $1`, id)
}

// GetUserByUsername возвращает пользователя по имени или storage.ErrNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash FROM users WHERE username = $1`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := s.db.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return user, nil
}

// Ping проверяет доступность PostgreSQL (readiness probe).
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("PostgreSQL недоступен: %w", err)
	}
	return nil
}

// Close закрывает пул подключений.
func (s *Store) Close() {
	s.pool.Close()
}

// buildSearchWhere строит WHERE-условие и аргументы для поиска.
// Пустые фильтры не попадают в условие; пустой запрос совпадает со всеми.
func buildSearchWhere(params storage.SearchParams) (whereClause string, args []any) {
	var conditions []string
	argNum := 1

	// Подстрока оригинального имени (case-insensitive)
	if params.Query != "" {
		conditions = append(conditions, fmt.Sprintf("original_filename ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(params.Query)+"%")
		argNum++
	}

	// Точное совпадение категории
	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, params.Category)
		argNum++
	}

	// Подстрока MIME-типа
	if params.MimeType != "" {
		conditions = append(conditions, fmt.Sprintf("mime_type LIKE $%d", argNum))
		args = append(args, "%"+escapeLike(params.MimeType)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// escapeLike экранирует спецсимволы LIKE-шаблона в пользовательском вводе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
