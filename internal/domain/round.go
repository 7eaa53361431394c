package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Round struct {
	ID               uint                     `json:"id" gorm:"primaryKey"`
	TourneyID        uint                     `json:"tourney_id" gorm:"not null;index"`
	Name             string                   `json:"name" gorm:"not null"`
	Status           Status                   `json:"status" gorm:"not null;default:'not_started'"`
	PlayersAdvancing int                      `json:"players_advancing" gorm:"not null;default:1"`
	PointsPerStage   datatypes.JSONSlice[int] `json:"points_per_stage" gorm:"not null"`
	NextRoundID      *uint                    `json:"next_round_id"`
	ParentRoundID    *uint                    `json:"parent_round_id" gorm:"index"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`

	// Relations
	Stages       []Stage       `json:"stages,omitempty" gorm:"foreignKey:RoundID"`
	PlayerRounds []PlayerRound `json:"player_rounds,omitempty" gorm:"foreignKey:RoundID"`
}

// PointsMode reports whether the round ranks by per-stage placement points
// rather than by cumulative score.
func (r *Round) PointsMode() bool {
	return len(r.PointsPerStage) > 0
}

// IsRedemption reports whether the round is fed by a top-level round's losers.
func (r *Round) IsRedemption() bool {
	return r.ParentRoundID != nil
}

// PlayerRound is one player's participation in one round.
type PlayerRound struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoundID   uint      `json:"round_id" gorm:"not null;uniqueIndex:idx_round_player"`
	PlayerID  uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_round_player"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Player *Player `json:"player,omitempty" gorm:"foreignKey:PlayerID"`

	// PlayerName is display-only and filled from Player when loaded.
	PlayerName string `json:"player_name,omitempty" gorm:"-"`
}
