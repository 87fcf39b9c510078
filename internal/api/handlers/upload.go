// upload.go — HTTP handler загрузки файлов (multipart form).
package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	apierrors "github.com/bigkaa/gofiledepot/internal/api/errors"
	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/service"
)

// maxFilesPerRequest — максимальное количество файлов в одном запросе.
const maxFilesPerRequest = 10

// UploadHandler — обработчик endpoint'а загрузки.
type UploadHandler struct {
	upload *service.UploadService
}

// NewUploadHandler создаёт обработчик загрузки.
func NewUploadHandler(upload *service.UploadService) *UploadHandler {
	return &UploadHandler{upload: upload}
}

// uploadResponse — тело ответа на загрузку.
type uploadResponse struct {
	Message  string                 `json:"message"`
	Files    []*model.FileRecord    `json:"files"`
	Rejected []service.RejectedFile `json:"rejected,omitempty"`
}

// UploadFiles обрабатывает POST /api/files/upload.
//
// Multipart form:
//   - category (обязательно): academic, relaxing или sessions
//   - files (обязательно): от 1 до 10 файлов
//
// Ответ 200: {"message": ..., "files": [...], "rejected": [...]}.
// rejected присутствует только при частично принятом пакете.
func (h *UploadHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	// Буфер в памяти для полей формы; тела файлов уходят во временные файлы
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	category := r.FormValue("category")

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}

	if len(headers) > maxFilesPerRequest {
		apierrors.ValidationError(w,
			fmt.Sprintf("Слишком много файлов: %d, максимум %d за запрос", len(headers), maxFilesPerRequest))
		return
	}

	inputs := make([]service.FileInput, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			apierrors.InternalError(w, fmt.Sprintf("Ошибка чтения файла %q", hdr.Filename))
			return
		}
		opened = append(opened, f)
		inputs = append(inputs, service.FileInput{
			Reader:           f,
			OriginalFilename: hdr.Filename,
			ContentType:      hdr.Header.Get("Content-Type"),
			Size:             hdr.Size,
		})
	}

	result, uploadErr := h.upload.Upload(r.Context(), category, inputs)
	if uploadErr != nil {
		apierrors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	resp := uploadResponse{
		Message: fmt.Sprintf("Загружено файлов: %d", len(result.Accepted)),
		Files:   result.Accepted,
	}
	if len(result.Rejected) > 0 {
		resp.Rejected = result.Rejected
	}

	writeJSON(w, http.StatusOK, resp)
}
