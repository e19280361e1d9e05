package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Generation struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    string         `gorm:"type:varchar(128);not null;index"`
	SessionId string         `gorm:"type:varchar(64);index"`
	Source    string         `gorm:"type:varchar(20);not null"`
	Kind      string         `gorm:"type:varchar(50);not null;index"`
	Thema     string         `gorm:"type:text"`
	Status    string         `gorm:"type:varchar(20);not null;index"`
	Content   string         `gorm:"type:text"`
	Error     string         `gorm:"type:text"`
	Answers   datatypes.JSON `gorm:"type:jsonb"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"default:now();not null;index"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Generation) TableName() string {
	return "generations"
}
