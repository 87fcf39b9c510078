// upload.go — сервис загрузки файлов.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/gofiledepot/internal/api/errors"
	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/storage"
	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
)

// Метрики загрузок.
var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fd_uploads_total",
			Help: "Общее количество обработанных файлов при загрузке",
		},
		[]string{"result"},
	)
)

// FileInput — один файл из multipart-запроса.
type FileInput struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// ContentType — MIME-тип из заголовка multipart part
	ContentType string
	// Size — размер файла в байтах
	Size int64
}

// RejectedFile — файл, отклонённый при пакетной загрузке, с причиной.
type RejectedFile struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// BatchResult — результат пакетной загрузки: принятые записи и отклонённые файлы.
type BatchResult struct {
	Accepted []*model.FileRecord
	Rejected []RejectedFile
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	store       storage.Store
	content     *contentdir.Dir
	maxFileSize int64
	logger      *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(store storage.Store, content *contentdir.Dir, maxFileSize int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:       store,
		content:     content,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "upload_service")),
	}
}

// Upload обрабатывает пакет файлов одной категории.
//
// Порядок валидации: категория → наличие файлов → per-file (размер, MIME).
// Невалидный файл отклоняется индивидуально и не мешает остальным.
// Запрос целиком отклоняется только при невалидной категории,
// пустом пакете или если отклонены все файлы.
//
// Для каждого принятого файла: сначала байты в content directory,
// затем запись метаданных; при ошибке записи байты удаляются.
func (s *UploadService) Upload(ctx context.Context, category string, files []FileInput) (*BatchResult, *UploadError) {
	// 1. Валидация категории
	if !model.ValidCategory(category) {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Недопустимая категория %q, допустимые: academic, relaxing, sessions", category),
		}
	}

	// 2. Пакет не может быть пустым
	if len(files) == 0 {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Не передано ни одного файла",
		}
	}

	result := &BatchResult{}

	for _, f := range files {
		record, reason := s.uploadOne(ctx, category, f)
		if reason != "" {
			uploadsTotal.WithLabelValues("rejected").Inc()
			result.Rejected = append(result.Rejected, RejectedFile{
				OriginalName: f.OriginalFilename,
				Reason:       reason,
			})
			continue
		}
		uploadsTotal.WithLabelValues("accepted").Inc()
		result.Accepted = append(result.Accepted, record)
	}

	// 3. Если все файлы отклонены — запрос считается неуспешным
	if len(result.Accepted) == 0 {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Все файлы отклонены: %s", result.Rejected[0].Reason),
		}
	}

	return result, nil
}

// uploadOne сохраняет один файл. Возвращает запись метаданных
// или непустую причину отклонения.
func (s *UploadService) uploadOne(ctx context.Context, category string, f FileInput) (*model.FileRecord, string) {
	// Per-file валидация: размер, затем MIME-тип
	if f.Size <= 0 {
		return nil, "пустой файл"
	}
	if f.Size > s.maxFileSize {
		return nil, fmt.Sprintf("размер файла %d байт превышает максимум %d байт", f.Size, s.maxFileSize)
	}

	contentType := detectContentType(f.ContentType)
	if !model.AllowedMimeType(contentType) {
		return nil, fmt.Sprintf("недопустимый тип файла %q", contentType)
	}

	// Сначала байты — запись метаданных без содержимого бесполезна
	saved, err := s.content.Save(f.Reader, f.OriginalFilename)
	if err != nil {
		s.logger.Error("Ошибка сохранения файла на диск",
			slog.String("filename", f.OriginalFilename),
			slog.String("error", err.Error()),
		)
		return nil, "ошибка сохранения файла"
	}

	record, err := s.store.CreateFile(ctx, storage.CreateFileParams{
		StoredFilename:   saved.StoredFilename,
		OriginalFilename: f.OriginalFilename,
		MimeType:         contentType,
		Size:             saved.Size,
		Category:         model.Category(category),
	})
	if err != nil {
		// Откат: удаляем уже записанные байты
		if delErr := s.content.Delete(saved.StoredFilename); delErr != nil {
			s.logger.Error("Ошибка отката записи содержимого",
				slog.String("stored_filename", saved.StoredFilename),
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("Ошибка записи метаданных",
			slog.String("filename", f.OriginalFilename),
			slog.String("error", err.Error()),
		)
		return nil, "ошибка записи метаданных"
	}

	s.logger.Info("Файл загружен",
		slog.String("file_id", record.ID),
		slog.String("filename", f.OriginalFilename),
		slog.String("stored_filename", saved.StoredFilename),
		slog.Int64("size", saved.Size),
		slog.String("category", category),
	)

	return record, ""
}

// detectContentType определяет Content-Type из заголовка multipart part.
// Если не указан — используется application/octet-stream.
func detectContentType(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	// Убираем параметры (charset и т.д.)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}
