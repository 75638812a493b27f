package domain

import (
	"fmt"
	"path/filepath"
)

// StorageKind определяет, в каком виде сессия лежит на диске
type StorageKind string

const (
	StoragePortable StorageKind = "portable" // <dir>/<id>.session
	StorageLegacy   StorageKind = "legacy"   // <dir>/<id> (config.json + database/)
)

const PortableExtension = ".session"

// ParseStorageKind разбирает sessionType из запроса.
// Старые клиенты присылают "telethon" и "tdata".
func ParseStorageKind(s string) (StorageKind, error) {
	switch s {
	case string(StoragePortable), "telethon", "":
		return StoragePortable, nil
	case string(StorageLegacy), "tdata":
		return StorageLegacy, nil
	default:
		return "", &UnknownError{Status: 400, Detail: fmt.Sprintf("Session type '%s' is not supported", s)}
	}
}

// StorageRef указывает на артефакт сессии конкретного аккаунта
type StorageRef struct {
	Kind StorageKind
	Dir  string
	ID   string
}

func (r StorageRef) PortablePath() string {
	return filepath.Join(r.Dir, r.ID+PortableExtension)
}

func (r StorageRef) LegacyPath() string {
	return filepath.Join(r.Dir, r.ID)
}

// Key используется как ключ аренды артефакта
func (r StorageRef) Key() string {
	return r.PortablePath()
}

// Account: снимок getMe
type Account struct {
	ID        int64
	Phone     string
	Username  string
	FirstName string
	LastName  string
	Premium   bool
}

// LegacyContainer: прочитанный legacy-контейнер (манифест + база TDLib)
type LegacyContainer struct {
	Path        string
	DatabaseDir string
	FilesDir    string
	Phone       string
	UserID      int64

	// Credentials хранит поля манифеста в именах нормализатора (api_id, device_model, ...)
	Credentials map[string]any
}
