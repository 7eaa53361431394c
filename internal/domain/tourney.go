package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is shared by tourneys and rounds. The only legal path is
// not_started -> in_progress -> complete.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

type TourneyType string

const (
	TourneyTypeGauntlet          TourneyType = "gauntlet"
	TourneyTypeDoubleElimination TourneyType = "double_elimination"
)

func (t TourneyType) Valid() bool {
	return t == TourneyTypeGauntlet || t == TourneyTypeDoubleElimination
}

type Tourney struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	Name      string      `json:"name" gorm:"not null"`
	Slug      string      `json:"slug" gorm:"uniqueIndex;not null"`
	Status    Status      `json:"status" gorm:"not null;default:'not_started'"`
	Type      TourneyType `json:"type" gorm:"not null;default:'gauntlet'"`
	CreatedBy uuid.UUID   `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TourneyAdmin grants a user the right to drive a tourney's state machine.
type TourneyAdmin struct {
	TourneyID uint      `json:"tourney_id" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// Player is a tourney-scoped player identity.
type Player struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TourneyID uint       `json:"tourney_id" gorm:"not null;uniqueIndex:idx_tourney_player_name"`
	Name      string     `json:"name" gorm:"not null;uniqueIndex:idx_tourney_player_name"`
	Seed      *int       `json:"seed"`
	UserID    *uuid.UUID `json:"user_id" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at"`
}
