package reconcile

import (
	"sync"

	"github.com/dom/gauntlet/internal/changefeed"
)

// rowRef carries the keys used to decide which tourney a row belongs to.
type rowRef struct {
	ID            uint `json:"id"`
	TourneyID     uint `json:"tourney_id"`
	RoundID       uint `json:"round_id"`
	StageID       uint `json:"stage_id"`
	PlayerRoundID uint `json:"player_round_id"`
}

// Mirror holds the live snapshot of a single tourney.
type Mirror struct {
	mu        sync.RWMutex
	tourneyID uint
	state     State
}

func NewMirror(tourneyID uint, initial State) *Mirror {
	return &Mirror{tourneyID: tourneyID, state: initial}
}

func (m *Mirror) TourneyID() uint {
	return m.tourneyID
}

func (m *Mirror) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Reset replaces the snapshot wholesale.
func (m *Mirror) Reset(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// Apply folds ev into the snapshot when the row belongs to this tourney and
// reports whether it did.
func (m *Mirror) Apply(ev changefeed.Event) (bool, error) {
	var ref rowRef
	if err := ev.Decode(&ref); err != nil {
		return false, decodeErr(ev, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owns(ev.Table, ref) {
		return false, nil
	}
	next, err := Apply(m.state, ev)
	if err != nil {
		return false, err
	}
	m.state = next
	return true, nil
}

func (m *Mirror) owns(table string, ref rowRef) bool {
	s := m.state
	switch table {
	case changefeed.TablePlayers:
		if _, ok := find(s.Players, ref.ID, playerID); ok {
			return true
		}
		return ref.TourneyID == m.tourneyID
	case changefeed.TableRounds:
		if _, ok := s.Round(ref.ID); ok {
			return true
		}
		return ref.TourneyID == m.tourneyID
	case changefeed.TableStages:
		if _, ok := s.Stage(ref.ID); ok {
			return true
		}
		_, ok := s.Round(ref.RoundID)
		return ok
	case changefeed.TablePlayerRounds:
		if _, ok := s.PlayerRound(ref.ID); ok {
			return true
		}
		_, ok := s.Round(ref.RoundID)
		return ok
	case changefeed.TableScores:
		if _, ok := s.Score(ref.ID); ok {
			return true
		}
		if _, ok := s.Stage(ref.StageID); ok {
			return true
		}
		_, ok := s.PlayerRound(ref.PlayerRoundID)
		return ok
	case changefeed.TableStageCharts:
		_, ok := s.Stage(ref.StageID)
		return ok
	}
	return false
}
