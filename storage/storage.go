package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/commkit/steward/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db *gorm.DB
}

var models = []any{
	&model.DelegationGrant{},
	&model.Ticket{},
	&model.TicketRecipient{},
	&model.RoleGroup{},
	&model.RoleGroupRole{},
	&model.NotifyChannel{},
	&model.TicketDraft{},
	&model.KeyValue{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	conn, err := Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate the schemas
	if err = conn.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: conn}, nil
}

// GrantStorage returns a GrantStorage
func (s *Storage) GrantStorage() *GrantStorage {
	return &GrantStorage{db: s.db}
}

// TicketStorage returns a TicketStorage
func (s *Storage) TicketStorage() *TicketStorage {
	return &TicketStorage{db: s.db}
}

// RoleGroupStorage returns a RoleGroupStorage
func (s *Storage) RoleGroupStorage() *RoleGroupStorage {
	return &RoleGroupStorage{db: s.db}
}

// NotifyChannelStorage returns a NotifyChannelStorage
func (s *Storage) NotifyChannelStorage() *NotifyChannelStorage {
	return &NotifyChannelStorage{db: s.db}
}

// DraftStorage returns a DraftStorage
func (s *Storage) DraftStorage() *DraftStorage {
	return &DraftStorage{db: s.db}
}

// KeyValue returns a KeyValueStorage
func (s *Storage) KeyValue() *KeyValueStorage {
	return &KeyValueStorage{db: s.db}
}

// LoadStorageBackends initializes the warehouse and returns grouped backends.
func LoadStorageBackends(cfg Config) (model.Backends, error) {
	warehouse, err := NewStorage(cfg)
	if err != nil {
		return model.Backends{}, err
	}
	return model.Backends{
		Grants:         warehouse.GrantStorage(),
		Tickets:        warehouse.TicketStorage(),
		RoleGroups:     warehouse.RoleGroupStorage(),
		NotifyChannels: warehouse.NotifyChannelStorage(),
		Drafts:         warehouse.DraftStorage(),
		KV:             warehouse.KeyValue(),
	}, nil
}
