package storage

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commkit/steward/storage/model"
)

// DraftStorage implements model.DraftStore using GORM
type DraftStorage struct {
	db *gorm.DB
}

// Put inserts or replaces the draft identified by its token
func (s *DraftStorage) Put(d *model.TicketDraft) error {
	return s.db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			UpdateAll: true,
		},
	).Create(d).Error
}

// Get returns a draft by token
func (s *DraftStorage) Get(token string) (*model.TicketDraft, error) {
	var d model.TicketDraft
	if err := s.db.Where("token = ?", token).First(&d).Error; err != nil {
		return nil, model.NotFoundErrorFmt("draft not found: %s", token)
	}
	return &d, nil
}

// Delete removes a draft by token. Deleting a missing draft is not an error.
func (s *DraftStorage) Delete(token string) error {
	return s.db.Where("token = ?", token).Delete(&model.TicketDraft{}).Error
}
