package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsTable は golang-migrate が適用履歴を記録するテーブルです。
const MigrationsTable = "mj_schema_migrations"

//go:embed *.sql
var files embed.FS

// FS は同期基盤のマイグレーションファイルです。
func FS() fs.FS {
	return files
}

// SetupSQL は up マイグレーションをバージョン順に連結した SQL を返します。
// 全て冪等なので、スクリプトの先頭でトランザクション外に毎回実行できます。
func SetupSQL() (string, error) {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return "", fmt.Errorf("migrations: glob: %w", err)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(files, name)
		if err != nil {
			return "", fmt.Errorf("migrations: read %s: %w", name, err)
		}
		parts = append(parts, strings.TrimSpace(string(b)))
	}
	return strings.Join(parts, "\n\n"), nil
}

// New は migrate インスタンスを生成します。dir が空の場合は埋め込みファイルを使います。
func New(dir, dsn string) (*migrate.Migrate, error) {
	dsn, err := withMigrationsTable(dsn)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		src, err := iofs.New(files, ".")
		if err != nil {
			return nil, fmt.Errorf("migrations: open embedded source: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
		if err != nil {
			return nil, fmt.Errorf("migrations: create migrate instance: %w", err)
		}
		return m, nil
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve path for %s: %w", dir, err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	if err != nil {
		return nil, fmt.Errorf("migrations: create migrate instance: %w", err)
	}
	return m, nil
}

// withMigrationsTable はアプリケーション側の schema_migrations と衝突しないよう、履歴テーブル名を固定します。
func withMigrationsTable(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("migrations: parse dsn: %w", err)
	}
	q := u.Query()
	if q.Get("x-migrations-table") == "" {
		q.Set("x-migrations-table", MigrationsTable)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run は action (up / down / drop / version) を実行します。
func Run(action, dir, dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := New(dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Info("no migration applied")
				return nil
			}
			return err
		}
		logger.Info("migration version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("migrations: unsupported action %q", action)
	}
}
