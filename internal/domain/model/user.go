package model

// User — учётная запись пользователя.
// Используется только реестром пользователей; файловые операции
// с пользователями не связаны.
type User struct {
	// ID — UUID записи
	ID string `json:"id"`
	// Username — уникальное имя пользователя
	Username string `json:"username"`
	// PasswordHash — bcrypt-хэш пароля. Никогда не сериализуется в ответы.
	PasswordHash string `json:"-"`
}
