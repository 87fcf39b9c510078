package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gofiledepot/internal/domain/model"
	"github.com/bigkaa/gofiledepot/internal/service"
	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
	"github.com/bigkaa/gofiledepot/internal/storage/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter собирает chi.Router с файловыми маршрутами
// поверх memstore и t.TempDir().
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	store := memstore.New(testLogger())
	content, err := contentdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("создание content directory: %v", err)
	}

	uploadSvc := service.NewUploadService(store, content, model.MaxFileSize, testLogger())
	fileSvc := service.NewFileService(store, content, 16, time.Minute, testLogger())

	files := NewFilesHandler(fileSvc)
	upload := NewUploadHandler(uploadSvc)

	r := chi.NewRouter()
	r.Route("/api/files", func(r chi.Router) {
		r.Get("/", files.ListFiles)
		r.Get("/category/{category}", files.ListFilesByCategory)
		r.Get("/search", files.SearchFiles)
		r.Post("/upload", upload.UploadFiles)
	})
	return r
}

// multipartUpload формирует multipart-запрос загрузки: категория
// и файлы (имя → содержимое) с Content-Type application/pdf.
func multipartUpload(t *testing.T, category string, files map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("category", category); err != nil {
		t.Fatalf("запись поля category: %v", err)
	}
	for name, content := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		hdr.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("создание part: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("запись содержимого: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("закрытие multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// decodeRecords разбирает JSON-массив записей из тела ответа.
func decodeRecords(t *testing.T, body *bytes.Buffer) []*model.FileRecord {
	t.Helper()
	var records []*model.FileRecord
	if err := json.Unmarshal(body.Bytes(), &records); err != nil {
		t.Fatalf("невалидный JSON: %v (тело: %s)", err, body.String())
	}
	return records
}

func TestUploadFiles_StatusOK(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "academic", map[string]string{"doc.pdf": "contents"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d (тело: %s)", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("ожидался 1 принятый файл, получено %d", len(resp.Files))
	}
	if resp.Files[0].OriginalFilename != "doc.pdf" {
		t.Errorf("OriginalFilename: ожидалось 'doc.pdf', получено %q", resp.Files[0].OriginalFilename)
	}
	if len(resp.Rejected) != 0 {
		t.Errorf("отклонённых быть не должно, получено %+v", resp.Rejected)
	}
}

func TestUploadFiles_InvalidCategory(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "unknown", map[string]string{"doc.pdf": "contents"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получено %d", rec.Code)
	}
}

func TestListFilesByCategory_UnknownCategoryEmptyList(t *testing.T) {
	router := newTestRouter(t)

	// Один файл в валидной категории
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "academic", map[string]string{"doc.pdf": "contents"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d", rec.Code)
	}

	// Неизвестная категория — не ошибка, а пустой список
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/category/unknown", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d (тело: %s)", rec.Code, rec.Body.String())
	}
	if records := decodeRecords(t, rec.Body); len(records) != 0 {
		t.Errorf("ожидался пустой список, получено %+v", records)
	}
	if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[") {
		t.Errorf("ожидался JSON-массив, получено %q", rec.Body.String())
	}
}

func TestListFilesByCategory_KnownCategory(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "relaxing", map[string]string{"pic.pdf": "contents"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/category/relaxing", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d", rec.Code)
	}
	records := decodeRecords(t, rec.Body)
	if len(records) != 1 || records[0].OriginalFilename != "pic.pdf" {
		t.Errorf("ожидался только pic.pdf, получено %+v", records)
	}
}

func TestSearchFiles_UnknownCategoryEmptyList(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "academic", map[string]string{"report.pdf": "contents"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/search?category=unknown", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получено %d (тело: %s)", rec.Code, rec.Body.String())
	}
	if records := decodeRecords(t, rec.Body); len(records) != 0 {
		t.Errorf("ожидался пустой список, получено %+v", records)
	}
}
