package project

import (
	"time"

	"github.com/google/uuid"

	"github.com/Maxborland/cutroom/internal/module/montage"
)

// Project scopes a brief, its shots and its montage plan.
type Project struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name  string    `json:"name" gorm:"not null"`
	Brief string    `json:"brief"`

	// Output format defaults, used to seed a new montage plan.
	Width  int     `json:"width" gorm:"default:1920"`
	Height int     `json:"height" gorm:"default:1080"`
	FPS    float64 `json:"fps" gorm:"default:30"`

	Plan *montage.Plan `json:"plan,omitempty" gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Project) TableName() string {
	return "projects"
}
