package models

import (
	"time"
)

// KVEntry is one key of a browser profile's persisted client state.
type KVEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	Namespace string    `gorm:"size:64;not null;uniqueIndex:idx_ns_key" json:"namespace"`
	Key       string    `gorm:"column:entry_key;size:128;not null;uniqueIndex:idx_ns_key" json:"key"`
	Value     string    `gorm:"type:text;not null"                      json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
