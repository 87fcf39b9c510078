// Пакет contentdir — операции с байтами загруженных файлов на диске.
// Каждый файл хранится под сгенерированным уникальным именем
// (stored filename), отличным от пользовательского.
package contentdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dir — content directory с байтами загруженных файлов.
type Dir struct {
	// path — корневая директория хранения (FD_DATA_DIR)
	path string
}

// SaveResult — результат сохранения файла.
type SaveResult struct {
	// StoredFilename — сгенерированное имя файла в директории
	StoredFilename string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт Dir. Создаёт директорию, если она не существует.
func New(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать content directory %s: %w", path, err)
	}
	return &Dir{path: path}, nil
}

// Save записывает данные из reader под свежим сгенерированным именем.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// Запись метаданных выполняется вызывающим кодом только после
// успешного Save — файл на диске всегда опережает запись.
func (d *Dir) Save(reader io.Reader, originalFilename string) (*SaveResult, error) {
	storedName := generateStoredName(originalFilename)
	fullPath := filepath.Join(d.path, storedName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoredFilename: storedName,
		Size:           size,
	}, nil
}

// Open открывает файл для чтения по stored filename.
// Вызывающий код обязан закрыть файл.
func (d *Dir) Open(storedFilename string) (*os.File, error) {
	fullPath, err := d.resolve(storedFilename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", storedFilename)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storedFilename, err)
	}
	return f, nil
}

// Exists проверяет наличие файла на диске.
func (d *Dir) Exists(storedFilename string) bool {
	fullPath, err := d.resolve(storedFilename)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// Size возвращает размер файла на диске.
func (d *Dir) Size(storedFilename string) (int64, error) {
	fullPath, err := d.resolve(storedFilename)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о файле %s: %w", storedFilename, err)
	}
	return info.Size(), nil
}

// ModTime возвращает время последней модификации файла.
func (d *Dir) ModTime(storedFilename string) (time.Time, error) {
	fullPath, err := d.resolve(storedFilename)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка получения информации о файле %s: %w", storedFilename, err)
	}
	return info.ModTime(), nil
}

// Delete удаляет файл с диска. Возвращает nil, если файла уже нет.
func (d *Dir) Delete(storedFilename string) error {
	fullPath, err := d.resolve(storedFilename)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storedFilename, err)
	}
	return nil
}

// List возвращает stored filenames всех файлов в директории.
// Временные файлы (.tmp) пропускаются.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения content directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Path возвращает путь к content directory.
func (d *Dir) Path() string {
	return d.path
}

// resolve строит абсолютный путь и защищает от выхода за пределы
// директории (path traversal через stored filename).
func (d *Dir) resolve(storedFilename string) (string, error) {
	if storedFilename == "" || storedFilename == "." || storedFilename == ".." ||
		strings.Contains(storedFilename, "/") || strings.Contains(storedFilename, "\\") ||
		storedFilename != filepath.Base(storedFilename) {
		return "", fmt.Errorf("недопустимое имя файла: %q", storedFilename)
	}
	return filepath.Join(d.path, storedFilename), nil
}

// generateStoredName генерирует уникальное имя файла для хранения.
// Формат: {timestamp}-{uuid8}{ext} — временная метка плюс случайный
// суффикс, расширение оригинала сохраняется.
// Пример: 20260828150405-a1b2c3d4.pdf
func generateStoredName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	return fmt.Sprintf("%s-%s%s", ts, uid, ext)
}
