package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/commkit/steward/storage/model"
)

// GrantStorage implements model.GrantStore using GORM
type GrantStorage struct {
	db *gorm.DB
}

// Enqueue inserts a new delegation grant. At most one active grant may exist
// per (subject, site); a duplicate is rejected with an AlreadyExistsError.
func (s *GrantStorage) Enqueue(g *model.DelegationGrant) error {
	var existing int64
	err := s.db.Model(&model.DelegationGrant{}).
		Where("subject_id = ? AND site_id = ?", g.SubjectID, g.SiteID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return model.AlreadyExistsErrorFmt(
			"active grant already exists for subject %s on site %d", g.SubjectID, g.SiteID,
		)
	}
	return s.db.Create(g).Error
}

// FindExpired returns all grants whose expiry time has passed.
func (s *GrantStorage) FindExpired(now time.Time) ([]model.DelegationGrant, error) {
	var grants []model.DelegationGrant
	if err := s.db.Where("expires_at <= ?", now).Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// FindActive returns the active grant for a (subject, site) pair.
func (s *GrantStorage) FindActive(subjectID string, siteID int64) (*model.DelegationGrant, error) {
	var g model.DelegationGrant
	err := s.db.Where("subject_id = ? AND site_id = ?", subjectID, siteID).First(&g).Error
	if err != nil {
		return nil, model.NotFoundErrorFmt(
			"no active grant for subject %s on site %d", subjectID, siteID,
		)
	}
	return &g, nil
}

// FindByNotifyRef returns the grant whose notice message matches the refs.
func (s *GrantStorage) FindByNotifyRef(channelID, messageID string) (*model.DelegationGrant, error) {
	var g model.DelegationGrant
	err := s.db.Where(
		"notify_channel_id = ? AND notify_message_id = ?", channelID, messageID,
	).First(&g).Error
	if err != nil {
		return nil, model.NotFoundErrorFmt("no grant for notice message %s", messageID)
	}
	return &g, nil
}

// Get returns a grant by id
func (s *GrantStorage) Get(id uint) (*model.DelegationGrant, error) {
	var g model.DelegationGrant
	if err := s.db.First(&g, id).Error; err != nil {
		return nil, model.NotFoundErrorFmt("grant not found: %d", id)
	}
	return &g, nil
}

// List returns all pending grants
func (s *GrantStorage) List() ([]model.DelegationGrant, error) {
	var grants []model.DelegationGrant
	if err := s.db.Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// Remove deletes a grant by id. Removing an already-removed grant is not an
// error; the expiry scanner and the manual revoke button may race.
func (s *GrantStorage) Remove(id uint) error {
	return s.db.Delete(&model.DelegationGrant{}, id).Error
}
