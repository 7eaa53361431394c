package domain

import "time"

type Chart struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null"`
	Artist     string    `json:"artist"`
	Difficulty int       `json:"difficulty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StageChart is one entry of a stage's chart pool.
type StageChart struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	StageID uint   `json:"stage_id" gorm:"not null;uniqueIndex:idx_stage_chart"`
	ChartID uint   `json:"chart_id" gorm:"not null;uniqueIndex:idx_stage_chart"`
	Chart   *Chart `json:"chart,omitempty" gorm:"foreignKey:ChartID"`
}

// Stage is one chart slot played once by every participant of its round.
type Stage struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	RoundID       uint      `json:"round_id" gorm:"not null;index"`
	ChosenChartID *uint     `json:"chosen_chart_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relations
	Scores      []Score      `json:"scores,omitempty" gorm:"foreignKey:StageID"`
	ChartPool   []StageChart `json:"chart_pool,omitempty" gorm:"foreignKey:StageID"`
	ChosenChart *Chart       `json:"chosen_chart,omitempty" gorm:"foreignKey:ChosenChartID"`
}

// PoolChart returns the chart of the pool entry for chartID, if loaded.
func (s *Stage) PoolChart(chartID uint) *Chart {
	for i := range s.ChartPool {
		if s.ChartPool[i].ChartID == chartID {
			return s.ChartPool[i].Chart
		}
	}
	return nil
}

// ScoreFor returns the stage's score for a player round entry, or nil.
func (s *Stage) ScoreFor(playerRoundID uint) *Score {
	for i := range s.Scores {
		if s.Scores[i].PlayerRoundID == playerRoundID {
			return &s.Scores[i]
		}
	}
	return nil
}

type Score struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	StageID       uint      `json:"stage_id" gorm:"not null;uniqueIndex:idx_stage_entry"`
	PlayerRoundID uint      `json:"player_round_id" gorm:"not null;uniqueIndex:idx_stage_entry"`
	Value         float64   `json:"value" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
