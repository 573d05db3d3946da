package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jack/shortlink-analytics/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type shortURLRow struct {
	ID        int64     `gorm:"primaryKey"`
	ShortCode string    `gorm:"uniqueIndex;size:20;not null"`
	TargetURL string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (shortURLRow) TableName() string { return "short_urls" }

type clickEventRow struct {
	ID         int64     `gorm:"primaryKey"`
	ShortURLID int64     `gorm:"index;not null"`
	ClickedAt  time.Time `gorm:"not null"`
	Referrer   string    `gorm:"not null;default:''"`
	UserAgent  string    `gorm:"not null;default:''"`
	SourceIP   string    `gorm:"not null;default:''"`
	Country    string    `gorm:"not null;default:''"`
	Region     string    `gorm:"not null;default:''"`
	City       string    `gorm:"not null;default:''"`
}

func (clickEventRow) TableName() string { return "click_events" }

// SQLiteRepository is a single-file MappingStore for local runs without Postgres.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (or creates) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		path += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&shortURLRow{}, &clickEventRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, url *model.ShortURL) error {
	row := shortURLRow{
		ShortCode: url.ShortCode,
		TargetURL: url.TargetURL,
		CreatedAt: url.CreatedAt,
		ExpiresAt: url.ExpiresAt,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to create short url: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrShortcodeExists
	}

	url.ID = row.ID
	return nil
}

func (r *SQLiteRepository) FindByCode(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	db := r.db.WithContext(ctx)

	var row shortURLRow
	if err := db.Where("short_code = ?", shortCode).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get short url: %w", err)
	}

	var clickRows []clickEventRow
	if err := db.Where("short_url_id = ?", row.ID).Order("id").Find(&clickRows).Error; err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}

	url := &model.ShortURL{
		ID:        row.ID,
		ShortCode: row.ShortCode,
		TargetURL: row.TargetURL,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Clicks:    make([]model.ClickEvent, 0, len(clickRows)),
	}
	for _, c := range clickRows {
		url.Clicks = append(url.Clicks, model.ClickEvent{
			Timestamp: c.ClickedAt,
			Referrer:  c.Referrer,
			UserAgent: c.UserAgent,
			SourceIP:  c.SourceIP,
			Geo:       model.Geo{Country: c.Country, Region: c.Region, City: c.City},
		})
	}

	return url, nil
}

func (r *SQLiteRepository) AppendClick(ctx context.Context, shortCode string, click *model.ClickEvent) error {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO click_events (short_url_id, clicked_at, referrer, user_agent, source_ip, country, region, city)
		SELECT id, ?, ?, ?, ?, ?, ?, ?
		FROM short_urls
		WHERE short_code = ?`,
		click.Timestamp,
		click.Referrer,
		click.UserAgent,
		click.SourceIP,
		click.Geo.Country,
		click.Geo.Region,
		click.Geo.City,
		shortCode,
	)
	if result.Error != nil {
		return fmt.Errorf("failed to append click: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrURLNotFound
	}
	return nil
}

func (r *SQLiteRepository) Health(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SQLiteRepository) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var _ MappingStore = (*SQLiteRepository)(nil)
