package storage

import (
	"database/sql"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commkit/steward/storage/model"
)

// KeyValueStorage implements model.KeyValueStore using GORM.
type KeyValueStorage struct {
	db *gorm.DB
}

// Get returns the JSON value for a (scope, key). If not found, returns nil, nil.
func (s *KeyValueStorage) Get(scope, key string) (datatypes.JSON, error) {
	// Read the JSON/JSONB value as raw bytes to support scalar JSON (e.g., numbers).
	var raw []byte
	// Struct conditions drop zero values, which would make the global scope
	// ("") match any scope. Query by column instead.
	row := s.db.Model(&model.KeyValue{}).
		Select("value").
		Where("scope = ? AND key = ?", scope, key).
		Row()
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw, nil
}

// GetAs retrieves and unmarshals the value for (scope, key) into target.
// target must be a pointer to the target type. Returns (false, nil) if not found.
func (s *KeyValueStorage) GetAs(scope, key string, target any) (bool, error) {
	raw, err := s.Get(scope, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err = json.Unmarshal(raw, target); err != nil {
		return false, err
	}
	return true, nil
}

// Set marshals value to JSON and upserts it at (scope, key).
func (s *KeyValueStorage) Set(scope, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	kv := model.KeyValue{
		Scope: scope,
		Key:   key,
		Value: datatypes.JSON(b),
	}
	return s.db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{
				{Name: "scope"},
				{Name: "key"},
			},
			DoUpdates: clause.AssignmentColumns(
				[]string{
					"value",
					"updated_at",
				},
			),
		},
	).Create(&kv).Error
}

// Delete removes a (scope, key) pair. No error if it's missing.
func (s *KeyValueStorage) Delete(scope, key string) error {
	return s.db.Where("scope = ? AND key = ?", scope, key).
		Delete(&model.KeyValue{}).Error
}
