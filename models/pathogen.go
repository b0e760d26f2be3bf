package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pathogen represents an organism that projects collect data about.
// Pathogens are referenced, never owned, by projects: deleting one
// soft-deletes its dependent projects through the service layer, not
// through a database cascade.
type Pathogen struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	Name           string         `json:"name" gorm:"not null"`
	ScientificName *string        `json:"scientificName" gorm:"default:null"`
	Description    *string        `json:"description" gorm:"default:null"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the primary key application-side so the same model
// runs on postgres and the sqlite test store.
func (p *Pathogen) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
