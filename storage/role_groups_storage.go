package storage

import (
	"gorm.io/gorm"

	"github.com/commkit/steward/storage/model"
)

// RoleGroupStorage implements model.RoleGroupStore using GORM
type RoleGroupStorage struct {
	db *gorm.DB
}

// Create creates a group; duplicate names are rejected
func (s *RoleGroupStorage) Create(name, description, createdBy string) (*model.RoleGroup, error) {
	var existing int64
	if err := s.db.Model(&model.RoleGroup{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, model.AlreadyExistsErrorFmt("role group already exists: %s", name)
	}
	g := model.RoleGroup{Name: name, Description: description, CreatedBy: createdBy}
	if err := s.db.Create(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// Get returns a group by name with its roles preloaded
func (s *RoleGroupStorage) Get(name string) (*model.RoleGroup, error) {
	var g model.RoleGroup
	if err := s.db.Preload("Roles").Where("name = ?", name).First(&g).Error; err != nil {
		return nil, model.NotFoundErrorFmt("role group not found: %s", name)
	}
	return &g, nil
}

// List returns all groups with their roles preloaded
func (s *RoleGroupStorage) List() ([]model.RoleGroup, error) {
	var groups []model.RoleGroup
	if err := s.db.Preload("Roles").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// Delete removes a group and its role rows
func (s *RoleGroupStorage) Delete(name string) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			var g model.RoleGroup
			if err := tx.Where("name = ?", name).First(&g).Error; err != nil {
				return model.NotFoundErrorFmt("role group not found: %s", name)
			}
			if err := tx.Where("role_group_id = ?", g.ID).
				Delete(&model.RoleGroupRole{}).Error; err != nil {
				return err
			}
			return tx.Delete(&g).Error
		},
	)
}

// AddRole adds a role to a group
func (s *RoleGroupStorage) AddRole(name, roleID string) error {
	var g model.RoleGroup
	if err := s.db.Where("name = ?", name).First(&g).Error; err != nil {
		return model.NotFoundErrorFmt("role group not found: %s", name)
	}
	var existing int64
	err := s.db.Model(&model.RoleGroupRole{}).
		Where("role_group_id = ? AND role_id = ?", g.ID, roleID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return model.AlreadyExistsErrorFmt("role %s already in group %s", roleID, name)
	}
	return s.db.Create(&model.RoleGroupRole{RoleGroupID: g.ID, RoleID: roleID}).Error
}

// RemoveRole removes a role from a group
func (s *RoleGroupStorage) RemoveRole(name, roleID string) error {
	var g model.RoleGroup
	if err := s.db.Where("name = ?", name).First(&g).Error; err != nil {
		return model.NotFoundErrorFmt("role group not found: %s", name)
	}
	res := s.db.Where("role_group_id = ? AND role_id = ?", g.ID, roleID).
		Delete(&model.RoleGroupRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("role %s not in group %s", roleID, name)
	}
	return nil
}
