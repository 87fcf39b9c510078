package contentdir

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	content := "содержимое тестового файла"
	result, err := dir.Save(strings.NewReader(content), "отчёт.pdf")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if result.Size != int64(len(content)) {
		t.Errorf("Size: ожидалось %d, получено %d", len(content), result.Size)
	}

	f, err := dir.Open(result.StoredFilename)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if string(data) != content {
		t.Errorf("содержимое не совпадает: получено %q", string(data))
	}
}

func TestStoredNameFormat(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	result, err := dir.Save(strings.NewReader("data"), "Photo.PNG")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// {timestamp14}-{uuid8}{ext}, расширение в нижнем регистре
	pattern := regexp.MustCompile(`^\d{14}-[0-9a-f]{8}\.png$`)
	if !pattern.MatchString(result.StoredFilename) {
		t.Errorf("неожиданный формат stored filename: %q", result.StoredFilename)
	}
}

func TestStoredNamesUnique(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		result, err := dir.Save(strings.NewReader("data"), "doc.pdf")
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if seen[result.StoredFilename] {
			t.Fatalf("повтор stored filename: %q", result.StoredFilename)
		}
		seen[result.StoredFilename] = true
	}
}

func TestExists(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	result, _ := dir.Save(strings.NewReader("data"), "doc.pdf")

	if !dir.Exists(result.StoredFilename) {
		t.Error("ожидалось Exists=true для сохранённого файла")
	}
	if dir.Exists("20260101000000-deadbeef.pdf") {
		t.Error("ожидалось Exists=false для отсутствующего файла")
	}
}

func TestSize(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	result, _ := dir.Save(strings.NewReader("12345"), "doc.pdf")

	size, err := dir.Size(result.StoredFilename)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if size != 5 {
		t.Errorf("Size: ожидалось 5, получено %d", size)
	}
}

func TestDelete(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	result, _ := dir.Save(strings.NewReader("data"), "doc.pdf")

	if err := dir.Delete(result.StoredFilename); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if dir.Exists(result.StoredFilename) {
		t.Error("файл остался на диске после Delete")
	}

	// Повторное удаление — nil, не ошибка
	if err := dir.Delete(result.StoredFilename); err != nil {
		t.Errorf("ожидался nil при удалении отсутствующего файла, получено %v", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	dir, err := New(root)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	r1, _ := dir.Save(strings.NewReader("a"), "a.pdf")
	r2, _ := dir.Save(strings.NewReader("b"), "b.pdf")

	// Незавершённая запись и поддиректория не должны попадать в список
	if err := os.WriteFile(filepath.Join(root, "unfinished.tmp"), []byte("x"), 0o600); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "subdir"), 0o750); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	names, err := dir.List()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ожидалось 2 файла, получено %d: %v", len(names), names)
	}

	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found[r1.StoredFilename] || !found[r2.StoredFilename] {
		t.Errorf("в списке отсутствуют сохранённые файлы: %v", names)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	names := []string{"", "../escape.pdf", "sub/file.pdf", "..", `..\escape.pdf`}
	for _, name := range names {
		if _, err := dir.Open(name); err == nil {
			t.Errorf("ожидалась ошибка для имени %q", name)
		}
		if dir.Exists(name) {
			t.Errorf("ожидалось Exists=false для имени %q", name)
		}
		if _, err := dir.Size(name); err == nil {
			t.Errorf("ожидалась ошибка Size для имени %q", name)
		}
	}
}

func TestOpenNotFound(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if _, err := dir.Open("20260101000000-deadbeef.pdf"); err == nil {
		t.Error("ожидалась ошибка для отсутствующего файла")
	}
}
