package service

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/bigkaa/gofiledepot/internal/storage/contentdir"
	"github.com/bigkaa/gofiledepot/internal/storage/memstore"
)

// testLogger создаёт логгер для тестов (только ошибки).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestUploadService создаёт UploadService поверх memstore и t.TempDir().
func newTestUploadService(t *testing.T, maxFileSize int64) (*UploadService, *memstore.Store, *contentdir.Dir) {
	t.Helper()

	store := memstore.New(testLogger())
	content, err := contentdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("создание content directory: %v", err)
	}

	return NewUploadService(store, content, maxFileSize, testLogger()), store, content
}

func pdfInput(name, body string) FileInput {
	return FileInput{
		Reader:           strings.NewReader(body),
		OriginalFilename: name,
		ContentType:      "application/pdf",
		Size:             int64(len(body)),
	}
}

func TestUpload_SingleFile(t *testing.T) {
	svc, store, content := newTestUploadService(t, 15<<20)

	result, uerr := svc.Upload(context.Background(), "academic", []FileInput{
		pdfInput("lecture.pdf", "pdf content"),
	})
	if uerr != nil {
		t.Fatalf("неожиданная ошибка: %v", uerr)
	}

	if len(result.Accepted) != 1 {
		t.Fatalf("ожидался 1 принятый файл, получено %d", len(result.Accepted))
	}
	if len(result.Rejected) != 0 {
		t.Errorf("ожидалось 0 отклонённых, получено %d", len(result.Rejected))
	}

	record := result.Accepted[0]
	if record.ID == "" {
		t.Error("у записи отсутствует ID")
	}
	if record.OriginalFilename != "lecture.pdf" {
		t.Errorf("OriginalFilename: ожидалось 'lecture.pdf', получено %q", record.OriginalFilename)
	}
	if record.Category != "academic" {
		t.Errorf("Category: ожидалось 'academic', получено %q", record.Category)
	}
	if record.Size != int64(len("pdf content")) {
		t.Errorf("Size: ожидалось %d, получено %d", len("pdf content"), record.Size)
	}

	// Запись есть в хранилище
	if store.Count() != 1 {
		t.Errorf("ожидалась 1 запись в хранилище, получено %d", store.Count())
	}

	// Байты есть на диске
	if !content.Exists(record.StoredFilename) {
		t.Errorf("содержимое %s отсутствует на диске", record.StoredFilename)
	}
}

func TestUpload_InvalidCategory(t *testing.T) {
	svc, _, _ := newTestUploadService(t, 15<<20)

	_, uerr := svc.Upload(context.Background(), "music", []FileInput{
		pdfInput("a.pdf", "data"),
	})
	if uerr == nil {
		t.Fatal("ожидалась ошибка для недопустимой категории")
	}
	if uerr.StatusCode != 400 {
		t.Errorf("StatusCode: ожидалось 400, получено %d", uerr.StatusCode)
	}
}

func TestUpload_NoFiles(t *testing.T) {
	svc, _, _ := newTestUploadService(t, 15<<20)

	_, uerr := svc.Upload(context.Background(), "academic", nil)
	if uerr == nil {
		t.Fatal("ожидалась ошибка для пустого пакета")
	}
	if uerr.StatusCode != 400 {
		t.Errorf("StatusCode: ожидалось 400, получено %d", uerr.StatusCode)
	}
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	svc, _, _ := newTestUploadService(t, 4)

	result, uerr := svc.Upload(context.Background(), "academic", []FileInput{
		pdfInput("big.pdf", "way too large"),
		pdfInput("ok.pdf", "ok"),
	})
	if uerr != nil {
		t.Fatalf("неожиданная ошибка: %v", uerr)
	}

	if len(result.Accepted) != 1 {
		t.Fatalf("ожидался 1 принятый файл, получено %d", len(result.Accepted))
	}
	if result.Accepted[0].OriginalFilename != "ok.pdf" {
		t.Errorf("принят не тот файл: %q", result.Accepted[0].OriginalFilename)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("ожидался 1 отклонённый файл, получено %d", len(result.Rejected))
	}
	if result.Rejected[0].OriginalName != "big.pdf" {
		t.Errorf("отклонён не тот файл: %q", result.Rejected[0].OriginalName)
	}
}

func TestUpload_RejectsEmptyFile(t *testing.T) {
	svc, store, _ := newTestUploadService(t, 15<<20)

	result, uerr := svc.Upload(context.Background(), "academic", []FileInput{
		{
			Reader:           strings.NewReader(""),
			OriginalFilename: "empty.pdf",
			ContentType:      "application/pdf",
			Size:             0,
		},
		pdfInput("ok.pdf", "data"),
	})
	if uerr != nil {
		t.Fatalf("неожиданная ошибка: %v", uerr)
	}

	if len(result.Accepted) != 1 || len(result.Rejected) != 1 {
		t.Fatalf("ожидалось 1 принятый и 1 отклонённый, получено %d/%d",
			len(result.Accepted), len(result.Rejected))
	}
	if result.Rejected[0].OriginalName != "empty.pdf" {
		t.Errorf("отклонён не тот файл: %q", result.Rejected[0].OriginalName)
	}
	if store.Count() != 1 {
		t.Errorf("ожидалась 1 запись в хранилище, получено %d", store.Count())
	}
}

func TestUpload_RejectsDisallowedMimeType(t *testing.T) {
	svc, store, _ := newTestUploadService(t, 15<<20)

	result, uerr := svc.Upload(context.Background(), "relaxing", []FileInput{
		{
			Reader:           strings.NewReader("#!/bin/sh"),
			OriginalFilename: "evil.sh",
			ContentType:      "application/x-sh",
			Size:             9,
		},
		pdfInput("good.pdf", "fine"),
	})
	if uerr != nil {
		t.Fatalf("неожиданная ошибка: %v", uerr)
	}

	if len(result.Accepted) != 1 || len(result.Rejected) != 1 {
		t.Fatalf("ожидалось 1 принятый и 1 отклонённый, получено %d/%d",
			len(result.Accepted), len(result.Rejected))
	}
	if result.Rejected[0].OriginalName != "evil.sh" {
		t.Errorf("отклонён не тот файл: %q", result.Rejected[0].OriginalName)
	}

	// Отклонённый файл не должен попасть в хранилище
	if store.Count() != 1 {
		t.Errorf("ожидалась 1 запись в хранилище, получено %d", store.Count())
	}
}

func TestUpload_AllRejected(t *testing.T) {
	svc, _, _ := newTestUploadService(t, 4)

	_, uerr := svc.Upload(context.Background(), "sessions", []FileInput{
		pdfInput("big1.pdf", "too large"),
		pdfInput("big2.pdf", "also too large"),
	})
	if uerr == nil {
		t.Fatal("ожидалась ошибка: все файлы отклонены")
	}
	if uerr.StatusCode != 400 {
		t.Errorf("StatusCode: ожидалось 400, получено %d", uerr.StatusCode)
	}
}

func TestUpload_ContentTypeWithCharset(t *testing.T) {
	svc, _, _ := newTestUploadService(t, 15<<20)

	result, uerr := svc.Upload(context.Background(), "academic", []FileInput{
		{
			Reader:           strings.NewReader("data"),
			OriginalFilename: "doc.pdf",
			ContentType:      "application/pdf; charset=utf-8",
			Size:             4,
		},
	})
	if uerr != nil {
		t.Fatalf("неожиданная ошибка: %v", uerr)
	}
	if result.Accepted[0].MimeType != "application/pdf" {
		t.Errorf("MimeType: ожидалось 'application/pdf', получено %q", result.Accepted[0].MimeType)
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "application/octet-stream"},
		{"image/png", "image/png"},
		{"application/pdf; charset=utf-8", "application/pdf"},
	}

	for _, tt := range tests {
		if got := detectContentType(tt.input); got != tt.expected {
			t.Errorf("detectContentType(%q): ожидалось %q, получено %q", tt.input, tt.expected, got)
		}
	}
}
