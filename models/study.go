package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Study represents a bounded data-collection effort inside a project.
// StudyID is the external, human-referencable handle; it is generated
// when the caller does not supply one. A study never outlives the hard
// deletion of its project but can be soft-deleted on its own.
type Study struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	StudyID     string         `json:"studyId" gorm:"not null"`
	Name        string         `json:"name" gorm:"not null"`
	Description *string        `json:"description" gorm:"default:null"`
	ProjectID   string         `json:"projectId" gorm:"type:uuid;not null;index"`
	StartDate   *time.Time     `json:"startDate" gorm:"default:null"`
	EndDate     *time.Time     `json:"endDate" gorm:"default:null"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Project Project `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for Study model
func (Study) TableName() string {
	return "studies"
}

func (s *Study) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
