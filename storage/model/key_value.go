package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KeyValueScopeGlobal     = ""
	KeyValueScopeDelegation = "delegation"

	// KeyValueKeyGrantTTL overrides the configured delegation TTL (seconds)
	// for a site; the key is suffixed with the site id.
	KeyValueKeyGrantTTL = "grant_ttl"
	// KeyValueKeyPanel stores the message ref of the posted escalation panel.
	KeyValueKeyPanel = "panel"
)

// KeyValue stores arbitrary key-value data.
//
// Values are serialized efficiently using GORM's json serializer, which
// leverages the database JSON type when available (e.g., PostgreSQL, MySQL),
// and falls back to TEXT in others (e.g., SQLite). The `Scope` field enables
// namespacing to avoid key collisions across different features.
type KeyValue struct {
	CreatedAt int            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Scope allows grouping keys by namespace; empty string is global scope.
	Scope string `gorm:"primaryKey" json:"scope"`

	// Key is the identifier within a scope.
	Key string `gorm:"primaryKey" json:"key"`

	// Value is stored as native JSON/JSONB (where supported) using datatypes.JSON.
	Value datatypes.JSON `json:"value"`
}

// KeyValueStore defines common operations for key-value storage.
// Implementations should honor the uniqueness of (scope,key) and
// JSON-serialized values.
type KeyValueStore interface {
	// Get retrieves the value for a (scope, key). Returns (nil, nil) if not found.
	Get(scope, key string) (datatypes.JSON, error)

	// GetAs retrieves the value for a (scope, key) and unmarshals it into
	// target; found reports whether the key existed.
	GetAs(scope, key string, target any) (found bool, err error)

	// Set stores/replaces the value for a (scope, key); the value is
	// JSON-marshaled.
	Set(scope, key string, value any) error

	// Delete removes the entry for a (scope, key). No error if missing.
	Delete(scope, key string) error
}
