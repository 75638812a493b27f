package tg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	cp "github.com/otiai10/copy"
)

// binlogName: файл TDLib, в котором лежит ключ авторизации
const binlogName = "td.binlog"

// LegacyStore хранит legacy-контейнеры в виде каталога:
// config.json (RawSessionConfig) + database/ + files/.
type LegacyStore struct {
	log *slog.Logger
}

func NewLegacyStore(log *slog.Logger) *LegacyStore {
	return &LegacyStore{log: log}
}

// LoadRawSessionConfig читает манифест контейнера
func LoadRawSessionConfig(containerPath string) (*RawSessionConfig, error) {
	path := filepath.Join(containerPath, manifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg RawSessionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.SessionInvalidError{Reason: "legacy manifest is corrupt", Err: fmt.Errorf("unmarshal %s: %w", path, err)}
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = filepath.Base(containerPath)
	}
	return &cfg, nil
}

func (s *LegacyStore) Load(ctx context.Context, path string) (*domain.LegacyContainer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := LoadRawSessionConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, domain.ErrLegacyUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	dbDir := filepath.Join(path, databaseDir)
	if _, err := os.Stat(filepath.Join(dbDir, binlogName)); err != nil {
		return nil, fmt.Errorf("load %s: no %s: %w", path, binlogName, domain.ErrLegacyUnauthorized)
	}

	return &domain.LegacyContainer{
		Path:        path,
		DatabaseDir: dbDir,
		FilesDir:    filepath.Join(path, filesDir),
		Phone:       raw.Phone,
		UserID:      raw.UserID,
		Credentials: raw.Credentials(),
	}, nil
}

// Materialize копирует базу контейнера в новый артефакт. Контейнер не меняется,
// прежний артефакт по тому же пути заменяется.
func (s *LegacyStore) Materialize(ctx context.Context, c *domain.LegacyContainer, artifactPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.RemoveAll(artifactPath); err != nil {
		return fmt.Errorf("clean %s: %w", artifactPath, err)
	}
	if err := cp.Copy(c.DatabaseDir, artifactPath); err != nil {
		return fmt.Errorf("copy database to %s: %w", artifactPath, err)
	}

	if _, err := os.Stat(c.FilesDir); err == nil {
		if err := cp.Copy(c.FilesDir, filepath.Join(artifactPath, filesDir)); err != nil {
			return fmt.Errorf("copy files to %s: %w", artifactPath, err)
		}
	}

	s.log.Debug("legacy container materialized", "container", c.Path, "artifact", artifactPath)
	return nil
}

// Export пишет контейнер legacyPath из артефакта: манифест и копию базы
func (s *LegacyStore) Export(ctx context.Context, artifactPath, legacyPath string, creds domain.CredentialBundle, acct domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dbDir := filepath.Join(legacyPath, databaseDir)
	if err := os.RemoveAll(dbDir); err != nil {
		return fmt.Errorf("clean %s: %w", dbDir, err)
	}
	if err := os.RemoveAll(filepath.Join(legacyPath, filesDir)); err != nil {
		return fmt.Errorf("clean %s: %w", legacyPath, err)
	}
	if err := cp.Copy(artifactPath, dbDir); err != nil {
		return fmt.Errorf("copy %s: %w", artifactPath, err)
	}

	// files в артефакте лежит внутри базы, а в контейнере рядом с ней
	nested := filepath.Join(dbDir, filesDir)
	if _, err := os.Stat(nested); err == nil {
		if err := os.Rename(nested, filepath.Join(legacyPath, filesDir)); err != nil {
			return fmt.Errorf("move files: %w", err)
		}
	}

	manifest := newRawSessionConfig(filepath.Base(legacyPath), creds, acct)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(legacyPath, manifestName), data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	s.log.Debug("legacy container written", "artifact", artifactPath, "container", legacyPath)
	return nil
}
