package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type StoryModel struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Program    string `gorm:"not null"`
	University string `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	Rating     int    `gorm:"not null"`
	ImageID    string
	Status     string    `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type GalleryImageModel struct {
	ID        string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	ImageID   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type NewsEventModel struct {
	ID        string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Type      string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	Date      time.Time `gorm:"not null;index"`
	Status    string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type ResourceModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	Type        string         `gorm:"not null"`
	SizeBytes   int64          `gorm:"not null"`
	FileID      string         `gorm:"uniqueIndex;not null"`
	MimeType    string
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"not null"`
}
