package models

import (
	"context"
	"errors"
	"strings"

	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// DirectoryWorker is a cached reference entry for fast offline selection.
// Entries are created only by explicit operator action and are purely
// advisory: a report's worker lines reference workers by name, never by
// directory id.
type DirectoryWorker struct {
	ID    uint            `gorm:"primaryKey" json:"id"`
	Name  string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Role  string          `gorm:"size:100" json:"role"`
	Rate  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rate"`
	Phone string          `gorm:"size:32" json:"phone"`
}

// DirectoryRig is a cached rig reference entry.
type DirectoryRig struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Code string `gorm:"size:50" json:"code"`
}

func ListDirectoryWorkers(ctx context.Context) ([]DirectoryWorker, error) {
	db := config.GetDB().WithContext(ctx)
	var workers []DirectoryWorker
	if err := db.Order("name ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

// SaveDirectoryWorker upserts by name. A non-blank phone number must parse
// as a valid number for the configured country.
func SaveDirectoryWorker(ctx context.Context, worker *DirectoryWorker) error {
	worker.Name = strings.TrimSpace(worker.Name)
	if worker.Name == "" {
		return errors.New("worker name is required")
	}
	if p := strings.TrimSpace(worker.Phone); p != "" {
		if err := utils.ValidatePhoneNumber(p, utils.CountryCode); err != nil {
			return err
		}
	}
	db := config.GetDB().WithContext(ctx)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(worker).Error
}

func DeleteDirectoryWorker(ctx context.Context, id uint) error {
	db := config.GetDB().WithContext(ctx)
	result := db.Delete(&DirectoryWorker{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func ListDirectoryRigs(ctx context.Context) ([]DirectoryRig, error) {
	db := config.GetDB().WithContext(ctx)
	var rigs []DirectoryRig
	if err := db.Order("name ASC").Find(&rigs).Error; err != nil {
		return nil, err
	}
	return rigs, nil
}

func SaveDirectoryRig(ctx context.Context, rig *DirectoryRig) error {
	rig.Name = strings.TrimSpace(rig.Name)
	if rig.Name == "" {
		return errors.New("rig name is required")
	}
	db := config.GetDB().WithContext(ctx)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(rig).Error
}

func DeleteDirectoryRig(ctx context.Context, id uint) error {
	db := config.GetDB().WithContext(ctx)
	result := db.Delete(&DirectoryRig{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
