// cleanup.go — сервис фоновой очистки осиротевшего содержимого.
//
// Осиротевший файл — файл в content directory, на который не ссылается
// ни одна запись метаданных (например, после сбоя между записью байтов
// и откатом). Очистка сверяет содержимое диска со списком записей
// и удаляет лишнее.
//
// Запускается как горутина с периодическим тикером (FD_CLEANUP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofiledepot/internal/storage"
	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
)

// Prometheus метрики очистки
var (
	// cleanupRunsTotal — количество запусков очистки.
	cleanupRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_cleanup_runs_total",
		Help: "Общее количество запусков фоновой очистки",
	})

	// cleanupOrphansDeletedTotal — количество удалённых осиротевших файлов.
	cleanupOrphansDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_cleanup_orphans_deleted_total",
		Help: "Общее количество осиротевших файлов, удалённых очисткой",
	})

	// cleanupDurationSeconds — длительность выполнения очистки.
	cleanupDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fd_cleanup_duration_seconds",
		Help:    "Длительность выполнения фоновой очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// CleanupResult — результат одного запуска очистки.
type CleanupResult struct {
	// Scanned — количество просканированных файлов на диске
	Scanned int
	// Deleted — количество удалённых осиротевших файлов
	Deleted int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// cleanupGracePeriod — минимальный возраст файла для удаления.
// Байты пишутся на диск раньше записи метаданных: свежий файл без
// записи может быть загрузкой в процессе, а не сиротой.
const cleanupGracePeriod = time.Minute

// CleanupService — сервис фоновой очистки осиротевшего содержимого.
type CleanupService struct {
	store    storage.Store
	content  *contentdir.Dir
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewCleanupService создаёт сервис очистки.
func NewCleanupService(store storage.Store, content *contentdir.Dir, interval time.Duration, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		store:    store,
		content:  content,
		interval: interval,
		grace:    cleanupGracePeriod,
		logger:   logger.With(slog.String("component", "cleanup")),
	}
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (c *CleanupService) Start(ctx context.Context) {
	cleanupCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.run(cleanupCtx)

	c.logger.Info("Фоновая очистка запущена",
		slog.String("interval", c.interval.String()),
	)
}

// Stop останавливает фоновый процесс очистки.
func (c *CleanupService) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.logger.Info("Фоновая очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (c *CleanupService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл очистки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
//
// Порядок обработки:
//  1. Список всех записей метаданных → множество известных stored filenames
//  2. Сканирование content directory
//  3. Удаление файлов, отсутствующих в метаданных
func (c *CleanupService) RunOnce(ctx context.Context) *CleanupResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	result := &CleanupResult{}

	c.logger.Debug("Очистка начата")

	// 1. Известные stored filenames из метаданных
	records, err := c.store.GetFiles(ctx)
	if err != nil {
		c.logger.Error("Очистка: ошибка получения списка записей",
			slog.String("error", err.Error()),
		)
		result.Errors++
		return result
	}

	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.StoredFilename] = struct{}{}
	}

	// 2. Содержимое диска
	names, err := c.content.List()
	if err != nil {
		c.logger.Error("Очистка: ошибка сканирования content directory",
			slog.String("error", err.Error()),
		)
		result.Errors++
		return result
	}
	result.Scanned = len(names)

	// 3. Удаление осиротевших файлов
	for _, name := range names {
		if _, ok := known[name]; ok {
			continue
		}

		// Свежие файлы пропускаем: запись метаданных могла ещё
		// не появиться (байты пишутся раньше записи)
		if modTime, err := c.content.ModTime(name); err == nil && time.Since(modTime) < c.grace {
			continue
		}

		if err := c.content.Delete(name); err != nil {
			c.logger.Error("Очистка: ошибка удаления осиротевшего файла",
				slog.String("stored_filename", name),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		c.logger.Debug("Очистка: осиротевший файл удалён",
			slog.String("stored_filename", name),
		)
		result.Deleted++
	}

	result.Duration = time.Since(start)

	cleanupRunsTotal.Inc()
	cleanupOrphansDeletedTotal.Add(float64(result.Deleted))
	cleanupDurationSeconds.Observe(result.Duration.Seconds())

	c.logger.Info("Очистка завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
