package docstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

type document struct {
	Key       string    `gorm:"column:doc_key;primaryKey"`
	Value     string    `gorm:"column:doc_value;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (document) TableName() string { return "documents" }

// Postgres keeps every document in one row of the documents table.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects with gorm and applies pending schema migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("docstore: connect postgres: %w", err)
	}
	p := &Postgres{db: db}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Migrate(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Migrate brings the schema up to date. It is a no-op when nothing is pending.
func (p *Postgres) Migrate() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("docstore: load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("docstore: migrate driver: %w", err)
	}
	// m.Close would close sqlDB, which gorm still owns.
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("docstore: migrate up: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func (p *Postgres) Version() (uint, bool, error) {
	sqlDB, err := p.db.DB()
	if err != nil {
		return 0, false, err
	}
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return 0, false, err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var doc document
	err := p.db.WithContext(ctx).Where("doc_key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: postgres get %s: %w", key, err)
	}
	return []byte(doc.Value), nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	doc := document{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc_value", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("docstore: postgres set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doc_key = ?", key).Delete(&document{}).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM counters WHERE counter_key = ?", key).Error
	})
	if err != nil {
		return fmt.Errorf("docstore: postgres delete %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Raw(`
		INSERT INTO counters (counter_key, counter_value) VALUES (?, 1)
		ON CONFLICT (counter_key) DO UPDATE SET counter_value = counters.counter_value + 1
		RETURNING counter_value`, key).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("docstore: postgres incr %s: %w", key, err)
	}
	return n, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("docstore: ping postgres: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
