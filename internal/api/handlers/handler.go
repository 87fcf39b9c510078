// handler.go — APIHandler собирает доменные обработчики и регистрирует
// маршруты в chi. Маршруты соответствуют встроенному OpenAPI-контракту.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/gofiledepot/internal/api/middleware"
)

// APIHandler — единый обработчик всех endpoints filedepot.
type APIHandler struct {
	files   *FilesHandler
	upload  *UploadHandler
	health  *HealthHandler
	openAPI []byte
	// jwtAuth защищает мутирующие операции; nil = аутентификация выключена
	jwtAuth *middleware.JWTAuth
}

// NewAPIHandler создаёт единый handler для всех endpoints.
// openAPIJSON — сериализованный OpenAPI-контракт, отдаваемый по /api/openapi.json.
// jwtAuth может быть nil — тогда мутирующие операции доступны без токена.
func NewAPIHandler(
	files *FilesHandler,
	upload *UploadHandler,
	health *HealthHandler,
	openAPIJSON []byte,
	jwtAuth *middleware.JWTAuth,
) *APIHandler {
	return &APIHandler{
		files:   files,
		upload:  upload,
		health:  health,
		openAPI: openAPIJSON,
		jwtAuth: jwtAuth,
	}
}

// RegisterRoutes регистрирует все маршруты приложения.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	// Служебные endpoints — без аутентификации
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/openapi.json", h.GetOpenAPI)

	r.Route("/api/files", func(r chi.Router) {
		// Чтение — всегда публичное
		r.Get("/", h.files.ListFiles)
		r.Get("/category/{category}", h.files.ListFilesByCategory)
		r.Get("/search", h.files.SearchFiles)
		r.Get("/{id}", h.files.GetFile)
		r.Get("/{id}/download", h.files.DownloadFile)
		r.Get("/{id}/preview", h.files.PreviewFile)

		// Мутирующие операции — под JWT, если аутентификация включена
		r.Group(func(r chi.Router) {
			if h.jwtAuth != nil {
				r.Use(h.jwtAuth.Middleware())
				r.Use(middleware.RequireScope(middleware.ScopeFilesWrite))
			}
			r.Post("/upload", h.upload.UploadFiles)
			r.Delete("/{id}", h.files.DeleteFile)
		})
	})
}

// GetOpenAPI обрабатывает GET /api/openapi.json.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openAPI)
}
