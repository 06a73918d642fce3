package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source identifies which of the recipe stores a recipe belongs to.
type Source string

const (
	// SourceCatalog is the pre-seeded recipe collection.
	SourceCatalog Source = "catalog"
	// SourcePublicData holds recipes imported from the public recipe dataset.
	SourcePublicData Source = "public_data"
	// SourceGenerated holds recipes created by the recommendation pipeline.
	SourceGenerated Source = "generated"
)

// Sources lists every store in cascade order.
var Sources = []Source{SourceCatalog, SourcePublicData, SourceGenerated}

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceCatalog, SourcePublicData, SourceGenerated:
		return true
	}
	return false
}

// ParseSource converts a string into a Source
func ParseSource(v string) (Source, error) {
	s := Source(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown recipe source %q", v)
	}
	return s, nil
}

// Recipe is a dish with its ingredient text. Every recipe lives in exactly
// one store, recorded in Source.
type Recipe struct {
	ID          uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"size:255;not null;index" json:"name"`
	Ingredients string         `gorm:"type:text;not null" json:"ingredients"`
	ImageURL    *string        `gorm:"size:512" json:"image_url"`
	Source      Source         `gorm:"size:20;not null;index" json:"source"`
	UserID      uuid.UUID      `gorm:"type:varchar(36);not null" json:"user_id"`
}

// BeforeCreate assigns an identity to recipes that do not have one yet
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if !r.Source.Valid() {
		return fmt.Errorf("invalid recipe source %q", r.Source)
	}
	return nil
}

// HasImage reports whether a rendered image has been attached
func (r *Recipe) HasImage() bool {
	return r.ImageURL != nil && *r.ImageURL != ""
}
