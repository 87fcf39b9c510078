// Точка входа filedepot — файлового репозитория с категориями,
// поиском и предпросмотром.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/gofiledepot/internal/api/handlers"
	"github.com/bigkaa/gofiledepot/internal/api/middleware"
	"github.com/bigkaa/gofiledepot/internal/api/openapi"
	"github.com/bigkaa/gofiledepot/internal/config"
	"github.com/bigkaa/gofiledepot/internal/server"
	"github.com/bigkaa/gofiledepot/internal/service"
	"github.com/bigkaa/gofiledepot/internal/storage"
	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
	"github.com/bigkaa/gofiledepot/internal/storage/memstore"
	"github.com/bigkaa/gofiledepot/internal/storage/pgstore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("filedepot запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
		slog.String("data_dir", cfg.DataDir),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Backend метаданных
	var store storage.Store
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		// Миграции схемы перед подключением pool'а
		if err := pgstore.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Error("Ошибка миграций базы данных", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = pgstore.New(pool, logger)
	default:
		store = memstore.New(logger)
	}
	defer store.Close()

	// 2. Content directory
	content, err := contentdir.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации content directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Сервисы
	uploadSvc := service.NewUploadService(store, content, cfg.MaxFileSize, logger)
	fileSvc := service.NewFileService(store, content, cfg.CacheSize, cfg.CacheTTL, logger)

	// 4. Фоновая очистка осиротевшего содержимого
	cleanupSvc := service.NewCleanupService(store, content, cfg.CleanupInterval, logger)
	cleanupSvc.Start(ctx)

	// 5. OpenAPI-контракт
	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	openAPIJSON, err := openapi.JSON(doc)
	if err != nil {
		logger.Error("Ошибка сериализации OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. JWT middleware (опционально, включается через FD_JWKS_URL)
	var jwtAuth *middleware.JWTAuth
	if cfg.JWKSUrl != "" {
		jwtAuth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:   cfg.JWKSUrl,
			JWTLeeway: cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT аутентификации",
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("JWT аутентификация настроена", slog.String("jwks_url", cfg.JWKSUrl))
	} else {
		logger.Warn("FD_JWKS_URL не задан, мутирующие операции доступны без аутентификации")
	}

	// 7. Handlers
	filesHandler := handlers.NewFilesHandler(fileSvc)
	uploadHandler := handlers.NewUploadHandler(uploadSvc)
	healthHandler := handlers.NewHealthHandler(cfg.DataDir, store)

	apiHandler := handlers.NewAPIHandler(
		filesHandler,
		uploadHandler,
		healthHandler,
		openAPIJSON,
		jwtAuth,
	)

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	cleanupSvc.Stop()

	logger.Info("filedepot остановлен")
}
