package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ExportRecord struct {
	ID        uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Format    string         `gorm:"type:varchar(10);not null" json:"format"`
	Criteria  datatypes.JSON `json:"criteria"`
	Rows      int            `gorm:"not null" json:"rows"`
	FilePath  string         `gorm:"size:500;not null" json:"file_path"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ExportRecord) TableName() string { return "helplink_export_log" }
