// Package sqlite keeps chunk vectors in a SQLite file through gorm and scores
// them with brute-force cosine similarity on read.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	driver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/vectorstore"
)

// ChunkRecord is one indexed chunk row.
type ChunkRecord struct {
	ChunkID    string `gorm:"primaryKey"`
	DocumentID string `gorm:"index"`
	Ord        int
	Text       string
	Metadata   string
	Embedding  []byte
	CreatedAt  time.Time
}

func (ChunkRecord) TableName() string { return "chunks" }

type Storage struct {
	db        *gorm.DB
	dimension int
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Storage, error) {
	db, err := gorm.Open(driver.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&ChunkRecord{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if err := vectorstore.ValidateBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]ChunkRecord, len(chunks))
	for i, ch := range chunks {
		md, err := json.Marshal(ch.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", ch.ChunkID, err)
		}
		rows[i] = ChunkRecord{
			ChunkID:    ch.ChunkID,
			DocumentID: ch.DocumentID,
			Ord:        ch.Index,
			Text:       ch.Text,
			Metadata:   string(md),
			Embedding:  vectorstore.EncodeVector(vectors[i]),
		}
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 100).Error
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	var rows []ChunkRecord
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		ch := domain.Chunk{
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Text:       r.Text,
			Index:      r.Ord,
		}
		if r.Metadata != "" {
			if err := json.Unmarshal([]byte(r.Metadata), &ch.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", r.ChunkID, err)
			}
		}
		results = append(results, domain.SearchResult{
			Chunk: ch,
			Score: vectorstore.Cosine(vectorstore.DecodeVector(r.Embedding), vector),
		})
	}
	return vectorstore.TopK(results, topK), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	if !s.db.Migrator().HasTable(&ChunkRecord{}) {
		return 0, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&ChunkRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// Clear deletes every chunk row. A database that was never initialised is
// already empty.
func (s *Storage) Clear(ctx context.Context) error {
	if !s.db.Migrator().HasTable(&ChunkRecord{}) {
		return nil
	}
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&ChunkRecord{}).Error
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
