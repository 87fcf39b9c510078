// files.go — сервис чтения, поиска, скачивания и удаления файлов.
// Координирует хранилище метаданных, content directory, LRU-кэш
// и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/storage"
	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл не найден")
)

// Prometheus-метрики.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fd_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fd_downloads_total",
		Help: "Общее количество запросов содержимого файлов (по статусу).",
	}, []string{"status"})
	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_download_bytes_total",
		Help: "Общее количество переданных байт содержимого.",
	})
	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fd_deletes_total",
		Help: "Общее количество запросов на удаление файлов (по статусу).",
	}, []string{"status"})
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// Disposition — способ отдачи содержимого файла клиенту.
type Disposition string

const (
	// DispositionAttachment — скачивание (Content-Disposition: attachment).
	DispositionAttachment Disposition = "attachment"
	// DispositionInline — предпросмотр в браузере (Content-Disposition: inline).
	DispositionInline Disposition = "inline"
)

// FileService — сервис чтения и удаления файлов.
// Метаданные кэшируются во встроенном LRU с TTL: типичная
// последовательность метаданные → download → preview обращается
// к одной и той же записи несколько раз подряд.
type FileService struct {
	store   storage.Store
	content *contentdir.Dir
	cache   *expirable.LRU[string, *model.FileRecord]
	logger  *slog.Logger
}

// NewFileService создаёт сервис файлов.
// cacheSize — максимальное количество записей LRU-кэша метаданных,
// cacheTTL — время жизни записи после добавления.
func NewFileService(store storage.Store, content *contentdir.Dir, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *FileService {
	return &FileService{
		store:   store,
		content: content,
		cache:   expirable.NewLRU[string, *model.FileRecord](cacheSize, nil, cacheTTL),
		logger:  logger.With(slog.String("component", "file_service")),
	}
}

// List возвращает все файлы, новые первыми.
func (s *FileService) List(ctx context.Context) ([]*model.FileRecord, error) {
	records, err := s.store.GetFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка файлов: %w", err)
	}
	return records, nil
}

// ListByCategory возвращает файлы указанной категории, новые первыми.
func (s *FileService) ListByCategory(ctx context.Context, category string) ([]*model.FileRecord, error) {
	records, err := s.store.GetFilesByCategory(ctx, model.Category(category))
	if err != nil {
		return nil, fmt.Errorf("получение файлов категории %s: %w", category, err)
	}
	return records, nil
}

// Search выполняет поиск файлов по параметрам.
// Обновляет Prometheus-метрики (search_total, search_duration_seconds).
func (s *FileService) Search(ctx context.Context, params storage.SearchParams) ([]*model.FileRecord, error) {
	start := time.Now()
	searchTotal.Inc()

	records, err := s.store.SearchFiles(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("поиск файлов: %w", err)
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.Int("returned", len(records)),
		slog.Duration("duration", duration),
	)

	return records, nil
}

// Get возвращает метаданные файла.
// Сначала проверяет LRU-кэш, при промахе — запрос к хранилищу, результат кэшируется.
func (s *FileService) Get(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if record, ok := s.cache.Get(fileID); ok {
		cacheHitsTotal.Inc()
		s.logger.Debug("Кэш hit для файла", slog.String("file_id", fileID))
		return record, nil
	}
	cacheMissesTotal.Inc()

	record, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение метаданных файла: %w", err)
	}

	s.cache.Add(fileID, record)

	return record, nil
}

// Stream отдаёт содержимое файла клиенту.
//
// Pipeline:
//  1. Получить FileRecord (кэш или хранилище)
//  2. Открыть содержимое из content directory
//  3. Если содержимое отсутствует на диске → lazy cleanup записи
//  4. Streaming copy в ResponseWriter с заголовками Content-Type,
//     Content-Length и Content-Disposition (attachment или inline)
func (s *FileService) Stream(ctx context.Context, w http.ResponseWriter, fileID string, disposition Disposition) error {
	// 1. Метаданные
	record, err := s.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
		} else {
			downloadsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	// 2. Содержимое
	f, err := s.content.Open(record.StoredFilename)
	if err != nil {
		// 3. Метаданные есть, байтов нет — расхождение с диском
		s.logger.Warn("Содержимое файла отсутствует на диске, выполняется lazy cleanup",
			slog.String("file_id", fileID),
			slog.String("stored_filename", record.StoredFilename),
		)
		s.lazyCleanup(ctx, fileID)
		downloadsTotal.WithLabelValues("lazy_cleanup").Inc()
		return ErrNotFound
	}
	defer f.Close()

	// 4. Заголовки и streaming copy
	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`%s; filename="%s"`, disposition, record.OriginalFilename))
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, f)
	if err != nil {
		// Заголовки уже отправлены, ошибку клиенту не вернуть
		s.logger.Error("Ошибка streaming содержимого",
			slog.String("file_id", fileID),
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
		downloadsTotal.WithLabelValues("stream_error").Inc()
		return nil
	}

	downloadsTotal.WithLabelValues("success").Inc()
	downloadBytesTotal.Add(float64(written))

	s.logger.Debug("Содержимое отдано",
		slog.String("file_id", fileID),
		slog.Int64("bytes", written),
		slog.String("disposition", string(disposition)),
	)

	return nil
}

// Delete удаляет файл: запись метаданных, содержимое на диске и запись кэша.
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	record, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		deletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("получение записи файла: %w", err)
	}

	deleted, err := s.store.DeleteFile(ctx, fileID)
	if err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("удаление записи файла: %w", err)
	}
	if !deleted {
		// Параллельное удаление успело раньше
		deletesTotal.WithLabelValues("not_found").Inc()
		return ErrNotFound
	}

	s.cache.Remove(fileID)

	// Байты удаляем после записи: осиротевшее содержимое
	// подберёт фоновая очистка, осиротевшая запись — нет.
	if err := s.content.Delete(record.StoredFilename); err != nil {
		s.logger.Error("Ошибка удаления содержимого файла",
			slog.String("file_id", fileID),
			slog.String("stored_filename", record.StoredFilename),
			slog.String("error", err.Error()),
		)
	}

	deletesTotal.WithLabelValues("success").Inc()

	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.String("filename", record.OriginalFilename),
	)

	return nil
}

// lazyCleanup удаляет запись метаданных, у которой нет содержимого на диске,
// и инвалидирует кэш.
func (s *FileService) lazyCleanup(ctx context.Context, fileID string) {
	if _, err := s.store.DeleteFile(ctx, fileID); err != nil {
		s.logger.Error("Ошибка lazy cleanup: не удалось удалить запись",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.cache.Remove(fileID)

	s.logger.Info("Lazy cleanup завершён: запись без содержимого удалена",
		slog.String("file_id", fileID),
	)
}
