// Package database opens the gorm connections the demo catalog is stored in.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/demo/internal/model"
)

// ErrNoSqlitePath is returned when a snapshot is requested without a target file.
var ErrNoSqlitePath = errors.New("sqlite file path not set")

const (
	pingTimeout  = 5 * time.Second
	maxOpenConns = 10
)

var sqlitePragmas = []string{
	"PRAGMA user_version = 1",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA synchronous = OFF",
	"PRAGMA cache_size = -32000",
	"PRAGMA temp_store = MEMORY",
}

// Postgres addresses the catalog server.
type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// PostgresFromConfig reads the db.* keys.
func PostgresFromConfig() Postgres {
	return Postgres{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		User:     viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

func (p Postgres) dsn() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// Connection is an open catalog database. Local is set when Postgres was
// unreachable and the catalog lives in an in-memory SQLite database.
type Connection struct {
	DB    *gorm.DB
	Local bool
}

// Connect opens Postgres and falls back to in-memory SQLite when the
// server cannot be reached.
func Connect(ctx context.Context, pg Postgres, log zerolog.Logger) (*Connection, error) {
	log.Debug().Str("host", pg.Host).Str("database", pg.Database).Msg("Connecting to Postgres")

	db, err := OpenPostgres(ctx, pg)
	if err == nil {
		log.Info().Msg("Connected to Postgres")
		return &Connection{DB: db}, nil
	}
	log.Error().Err(err).Msg("Postgres unreachable, using in-memory SQLite")

	db, err = OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("open fallback sqlite: %w", err)
	}
	return &Connection{DB: db, Local: true}, nil
}

// OpenPostgres opens and pings the server.
func OpenPostgres(ctx context.Context, pg Postgres) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  pg.dsn(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	return db, nil
}

// MemoryDSN names a shared in-memory SQLite database.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// OpenSqlite opens a SQLite database tuned for bulk inserts. An empty
// path opens a shared in-memory database.
func OpenSqlite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates the catalog tables and seeds the catalog info row once.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	info := model.CatalogInfo{
		GroupName:        "OCAP",
		GroupDescription: "Demo catalog",
		GroupWebsite:     "https://ocap2.github.io",
	}
	if err := db.FirstOrCreate(&info).Error; err != nil {
		return fmt.Errorf("seed catalog info: %w", err)
	}
	return nil
}

// Snapshot writes db to path with VACUUM INTO. The copy is made next to
// path and renamed over it, so an older snapshot survives a failed run.
func Snapshot(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoSqlitePath
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)

	if err := db.Exec("VACUUM INTO ?", "file:"+tmp).Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// RestoreFromDisk copies every catalog row of the snapshot at path into db,
// keeping primary keys so references stay valid. db must be migrated.
// It returns the number of rows copied.
func RestoreFromDisk(db *gorm.DB, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", path, err)
	}
	src, err := OpenSqlite(path)
	if err != nil {
		return 0, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer Close(src)

	total := 0
	for _, copyFn := range []func(src, dst *gorm.DB) (int, error){
		copyTable[model.Mission],
		copyTable[model.Demo],
		copyTable[model.PlaybackRun],
	} {
		n, err := copyFn(src, db)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// copyTable copies all rows of one model, skipping rows already present.
func copyTable[M any](src, dst *gorm.DB) (int, error) {
	var rows []M
	if err := src.Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("read %T rows: %w", *new(M), err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := dst.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("copy %T rows: %w", *new(M), err)
	}
	return len(rows), nil
}
