package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// entryRow is the relational shape of an Entry.
type entryRow struct {
	ID                   int64  `gorm:"primaryKey;autoIncrement"`
	UserID               string `gorm:"not null;index;uniqueIndex:idx_user_manga"`
	MangaID              string `gorm:"not null;uniqueIndex:idx_user_manga"`
	Title                string `gorm:"not null"`
	CoverURL             string
	Status               string `gorm:"not null"`
	CurrentChapterID     string
	CurrentChapterNumber string
	CurrentPage          int
	Score                int
	UpdatedAt            time.Time
}

func (entryRow) TableName() string {
	return "library_entries"
}

func (r entryRow) entry() Entry {
	return Entry{
		MangaID:              r.MangaID,
		Title:                r.Title,
		CoverURL:             r.CoverURL,
		Status:               Status(r.Status),
		CurrentChapterID:     r.CurrentChapterID,
		CurrentChapterNumber: r.CurrentChapterNumber,
		CurrentPage:          r.CurrentPage,
		Score:                r.Score,
		UpdatedAt:            r.UpdatedAt,
	}
}

func rowFrom(userID string, e Entry) entryRow {
	return entryRow{
		UserID:               userID,
		MangaID:              e.MangaID,
		Title:                e.Title,
		CoverURL:             e.CoverURL,
		Status:               string(e.Status),
		CurrentChapterID:     e.CurrentChapterID,
		CurrentChapterNumber: e.CurrentChapterNumber,
		CurrentPage:          e.CurrentPage,
		Score:                e.Score,
		UpdatedAt:            e.UpdatedAt,
	}
}

// GormStore persists the library in Postgres. It backs the remote sync mode
// where the library follows the user across devices.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore connects to Postgres and migrates the library table.
func NewGormStore(databaseURL string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&entryRow{}); err != nil {
		return nil, fmt.Errorf("migrate library schema: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) find(ctx context.Context, userID, mangaID string) (*entryRow, error) {
	var row entryRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND manga_id = ?", userID, mangaID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find library entry: %w", err)
	}
	return &row, nil
}

func (s *GormStore) Upsert(ctx context.Context, userID string, entry Entry) error {
	if entry.MangaID == "" {
		return fmt.Errorf("manga id is required")
	}
	existing, err := s.find(ctx, userID, entry.MangaID)
	if err != nil {
		return err
	}
	if existing == nil {
		row := rowFrom(userID, merge(Entry{}, entry, s.now()))
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("create library entry: %w", err)
		}
		return nil
	}
	merged := rowFrom(userID, merge(existing.entry(), entry, s.now()))
	merged.ID = existing.ID
	if err := s.db.WithContext(ctx).Model(&entryRow{}).Where("id = ?", existing.ID).Updates(&merged).Error; err != nil {
		return fmt.Errorf("update library entry: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateProgress(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error {
	existing, err := s.find(ctx, userID, mangaID)
	if err != nil {
		return err
	}
	var base Entry
	found := existing != nil
	if found {
		base = existing.entry()
	}
	row := rowFrom(userID, applyProgress(base, found, mangaID, chapterID, chapterNumber, page, s.now()))
	if !found {
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("create library entry: %w", err)
		}
		return nil
	}
	row.ID = existing.ID
	// Select all columns so a zero page still persists.
	if err := s.db.WithContext(ctx).Model(&entryRow{}).Where("id = ?", existing.ID).
		Select("*").Omit("id").Updates(&row).Error; err != nil {
		return fmt.Errorf("update library entry: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, userID, mangaID string) (*Entry, error) {
	row, err := s.find(ctx, userID, mangaID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	entry := row.entry()
	return &entry, nil
}

func (s *GormStore) List(ctx context.Context, userID string) ([]Entry, error) {
	var rows []entryRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (s *GormStore) Remove(ctx context.Context, userID, mangaID string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND manga_id = ?", userID, mangaID).
		Delete(&entryRow{})
	if result.Error != nil {
		return fmt.Errorf("remove library entry: %w", result.Error)
	}
	return nil
}
