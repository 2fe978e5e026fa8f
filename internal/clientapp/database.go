package clientapp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	driverPostgres  = "postgres"
	driverSQLite    = "sqlite"
	sqliteMemory    = ":memory:"
	databaseDirName = "supplyctl"
	databaseFileExt = ".db"
)

// databaseLocation is a parsed --database-url.
type databaseLocation struct {
	driver string
	dsn    string
}

// OpenDatabase opens the local database named by rawURL. postgres:// and
// postgresql:// URLs use PostgreSQL; sqlite:// URLs and bare paths use SQLite.
func OpenDatabase(ctx context.Context, rawURL string) (*gorm.DB, func() error, error) {
	location, err := locateDatabase(rawURL)
	if err != nil {
		return nil, nil, err
	}
	var dialector gorm.Dialector
	switch location.driver {
	case driverPostgres:
		dialector = postgres.Open(location.dsn)
	default:
		if err := ensureParentDir(location.dsn); err != nil {
			return nil, nil, err
		}
		dialector = sqlite.Open(location.dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if location.driver == driverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	return db.WithContext(ctx), sqlDB.Close, nil
}

// DefaultDatabasePath is the SQLite file used for endpoint when no database
// is configured. Each backend host gets its own file.
func DefaultDatabasePath(endpoint string) string {
	host := endpoint
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	name := strings.Map(func(character rune) rune {
		switch {
		case character >= 'a' && character <= 'z', character >= '0' && character <= '9', character == '.', character == '-':
			return character
		case character >= 'A' && character <= 'Z':
			return character + ('a' - 'A')
		default:
			return '_'
		}
	}, host)
	return filepath.Join(os.TempDir(), databaseDirName, name+databaseFileExt)
}

func locateDatabase(rawURL string) (databaseLocation, error) {
	trimmed := strings.TrimSpace(rawURL)
	switch {
	case trimmed == "":
		return databaseLocation{}, fmt.Errorf("database url is empty")
	case trimmed == sqliteMemory:
		return databaseLocation{driver: driverSQLite, dsn: sqliteMemory}, nil
	case !strings.Contains(trimmed, "://"):
		return databaseLocation{driver: driverSQLite, dsn: filepath.Clean(trimmed)}, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return databaseLocation{}, fmt.Errorf("parse database url: %w", err)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql":
		return databaseLocation{driver: driverPostgres, dsn: trimmed}, nil
	case driverSQLite:
		// sqlite://relative/file.db puts the first segment in Host.
		path := parsed.Host + parsed.Path
		if path == "" || path == "/" {
			return databaseLocation{}, fmt.Errorf("sqlite url %q has no path", rawURL)
		}
		if path == sqliteMemory {
			return databaseLocation{driver: driverSQLite, dsn: sqliteMemory}, nil
		}
		return databaseLocation{driver: driverSQLite, dsn: filepath.Clean(path)}, nil
	default:
		return databaseLocation{}, fmt.Errorf("unsupported database scheme %q", parsed.Scheme)
	}
}

func ensureParentDir(path string) error {
	if path == sqliteMemory {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
