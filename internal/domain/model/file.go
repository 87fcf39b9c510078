// Пакет model — доменные модели filedepot.
package model

import "time"

// Category — категория файла. Закрытый набор значений,
// используется для разбиения файлов при просмотре.
type Category string

// Допустимые категории файлов.
const (
	CategoryAcademic Category = "academic"
	CategoryRelaxing Category = "relaxing"
	CategorySessions Category = "sessions"
)

// ValidCategory проверяет, что строка — допустимая категория.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryAcademic, CategoryRelaxing, CategorySessions:
		return true
	default:
		return false
	}
}

// MaxFileSize — максимальный размер загружаемого файла (15 MB).
const MaxFileSize int64 = 15 << 20

// AllowedMimeType проверяет MIME-тип по allow-list.
// Разрешены документы (PDF, Excel) и изображения (JPEG, PNG, GIF).
func AllowedMimeType(mimeType string) bool {
	switch mimeType {
	case "application/pdf",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif":
		return true
	default:
		return false
	}
}

// FileRecord — метаданные одного загруженного файла.
// Запись иммутабельна после создания: читается или удаляется, но не изменяется.
type FileRecord struct {
	// ID — UUID записи, назначается хранилищем при создании
	ID string `json:"id"`
	// StoredFilename — уникальное имя файла на диске (ключ в content directory)
	StoredFilename string `json:"filename"`
	// OriginalFilename — имя файла, заданное пользователем (отображение, download)
	OriginalFilename string `json:"originalName"`
	// MimeType — MIME-тип, проверенный по allow-list при загрузке
	MimeType string `json:"mimeType"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
	// Category — категория файла (academic, relaxing, sessions)
	Category Category `json:"category"`
	// UploadedAt — время загрузки, назначается сервером при вставке.
	// Единственный ключ сортировки: новые первые.
	UploadedAt time.Time `json:"uploadedAt"`
}
