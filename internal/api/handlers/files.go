// files.go — HTTP handlers файловых операций: список, категория,
// поиск, метаданные, скачивание, предпросмотр, удаление.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/gofiledepot/internal/api/errors"
	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/service"
	"github.com/bigkaa/gofiledepot/internal/storage"
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	files *service.FileService
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(files *service.FileService) *FilesHandler {
	return &FilesHandler{files: files}
}

// ListFiles обрабатывает GET /api/files.
// Возвращает все файлы, новые первыми.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List(r.Context())
	if err != nil {
		apierrors.InternalError(w, "Ошибка получения списка файлов")
		return
	}
	writeJSON(w, http.StatusOK, recordsOrEmpty(records))
}

// ListFilesByCategory обрабатывает GET /api/files/category/{category}.
// Неизвестная категория не ошибка: под неё просто нет файлов, ответ [].
func (h *FilesHandler) ListFilesByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	records, err := h.files.ListByCategory(r.Context(), category)
	if err != nil {
		apierrors.InternalError(w, "Ошибка получения файлов категории")
		return
	}
	writeJSON(w, http.StatusOK, recordsOrEmpty(records))
}

// SearchFiles обрабатывает GET /api/files/search?q=&category=&type=.
// Все параметры опциональны и комбинируются через AND. Фильтр по
// несуществующей категории даёт пустой результат, а не ошибку.
func (h *FilesHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	records, err := h.files.Search(r.Context(), storage.SearchParams{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		MimeType: q.Get("type"),
	})
	if err != nil {
		apierrors.InternalError(w, "Ошибка поиска файлов")
		return
	}
	writeJSON(w, http.StatusOK, recordsOrEmpty(records))
}

// GetFile обрабатывает GET /api/files/{id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	record, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Файл %s не найден", fileID))
			return
		}
		apierrors.InternalError(w, "Ошибка получения метаданных файла")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DownloadFile обрабатывает GET /api/files/{id}/download.
// Отдаёт содержимое с Content-Disposition: attachment.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, service.DispositionAttachment)
}

// PreviewFile обрабатывает GET /api/files/{id}/preview.
// Отдаёт содержимое с Content-Disposition: inline.
func (h *FilesHandler) PreviewFile(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, service.DispositionInline)
}

func (h *FilesHandler) stream(w http.ResponseWriter, r *http.Request, disposition service.Disposition) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	if err := h.files.Stream(r.Context(), w, fileID, disposition); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Файл %s не найден", fileID))
			return
		}
		apierrors.InternalError(w, "Ошибка чтения содержимого файла")
	}
}

// DeleteFile обрабатывает DELETE /api/files/{id}.
// Удаляет запись метаданных и содержимое на диске.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), fileID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Файл %s не найден", fileID))
			return
		}
		apierrors.InternalError(w, "Ошибка удаления файла")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Файл удалён"})
}

// fileIDParam извлекает и валидирует {id} из пути.
// Невалидный UUID трактуется как отсутствующий файл (404).
func fileIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	fileID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.NotFound(w, fmt.Sprintf("Файл %s не найден", fileID))
		return "", false
	}
	return fileID, true
}

// recordsOrEmpty гарантирует сериализацию пустого результата как [], а не null.
func recordsOrEmpty(records []*model.FileRecord) []*model.FileRecord {
	if records == nil {
		return []*model.FileRecord{}
	}
	return records
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
