package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the Postgres row behind GormStore: one JSONB object per
// (collection, id).
type DocumentRow struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:255"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (DocumentRow) TableName() string { return "documents" }

// GormStore merges patches with the JSONB || operator inside a single upsert.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row DocumentRow
	err := g.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s/%s failed: %w", collection, id, err)
	}

	doc := Document{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}
	return doc, nil
}

func (g *GormStore) Set(ctx context.Context, collection, id string, patch Document, opts SetOptions) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	row := DocumentRow{Collection: collection, ID: id, Data: data, UpdatedAt: time.Now().UTC()}

	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       gorm.Expr("EXCLUDED.data"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}
	if opts.Merge {
		conflict.DoUpdates = clause.Assignments(map[string]interface{}{
			"data":       gorm.Expr(`"documents"."data" || EXCLUDED.data`),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		})
	}

	if err := g.db.WithContext(ctx).Clauses(conflict).Create(&row).Error; err != nil {
		return fmt.Errorf("postgres upsert %s/%s failed: %w", collection, id, err)
	}
	return nil
}
