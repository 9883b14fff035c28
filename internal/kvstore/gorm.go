package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

const opTimeout = 2 * time.Second

// Gorm stores keys of one namespace (a browser profile) in kv_entries.
type Gorm struct {
	DB        *gorm.DB
	Namespace string
}

func NewGorm(db *gorm.DB, namespace string) *Gorm {
	return &Gorm{DB: db, Namespace: namespace}
}

func (g *Gorm) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var entry models.KVEntry
	err := g.DB.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", g.Namespace, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", g.Namespace, key, err)
	}
	return entry.Value, true, nil
}

func (g *Gorm) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entry := models.KVEntry{Namespace: g.Namespace, Key: key, Value: value}
	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", g.Namespace, key, err)
	}
	return nil
}

func (g *Gorm) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := g.DB.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", g.Namespace, key).
		Delete(&models.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", g.Namespace, key, err)
	}
	return nil
}
