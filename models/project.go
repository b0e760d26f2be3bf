package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Privacy represents project visibility levels
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// Project represents a data-collection project owned by an organisation.
// The slug is immutable once created: it names the protected resource and
// the admin group in the identity provider, so changing it would orphan
// the authorization graph.
type Project struct {
	ID             string         `json:"id" gorm:"primaryKey;type:uuid"`
	Slug           string         `json:"slug" gorm:"not null"`
	Name           string         `json:"name" gorm:"not null"`
	Description    *string        `json:"description" gorm:"default:null"`
	OrganisationID string         `json:"organisationId" gorm:"not null;index"`
	UserID         string         `json:"userId" gorm:"not null;index"`
	Privacy        Privacy        `json:"privacy" gorm:"type:varchar(10);default:'private'"`
	PathogenID     *string        `json:"pathogenId" gorm:"type:uuid;index;default:null"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Pathogen *Pathogen `json:"pathogen,omitempty" gorm:"foreignKey:PathogenID;constraint:OnDelete:SET NULL"`
	Studies  []Study   `json:"studies,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Privacy == "" {
		p.Privacy = PrivacyPrivate
	}
	return nil
}
