package storage

import (
	"gorm.io/gorm"

	"github.com/commkit/steward/storage/model"
)

// NotifyChannelStorage implements model.NotifyChannelStore using GORM
type NotifyChannelStorage struct {
	db *gorm.DB
}

// Register adds a channel for a purpose; duplicates are rejected
func (s *NotifyChannelStorage) Register(purpose, channelID string) (*model.NotifyChannel, error) {
	var existing int64
	err := s.db.Model(&model.NotifyChannel{}).
		Where("purpose = ? AND channel_id = ?", purpose, channelID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, model.AlreadyExistsErrorFmt(
			"channel %s already registered for %s", channelID, purpose,
		)
	}
	nc := model.NotifyChannel{Purpose: purpose, ChannelID: channelID}
	if err := s.db.Create(&nc).Error; err != nil {
		return nil, err
	}
	return &nc, nil
}

// List returns all channels registered for the purpose
func (s *NotifyChannelStorage) List(purpose string) ([]model.NotifyChannel, error) {
	var channels []model.NotifyChannel
	if err := s.db.Where("purpose = ?", purpose).Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// Remove deletes a registration
func (s *NotifyChannelStorage) Remove(purpose, channelID string) error {
	res := s.db.Where("purpose = ? AND channel_id = ?", purpose, channelID).
		Delete(&model.NotifyChannel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("channel %s not registered for %s", channelID, purpose)
	}
	return nil
}
