package reconcile

import (
	"cmp"
	"slices"

	"github.com/dom/gauntlet/internal/domain"
)

// State is an immutable snapshot of one tourney's cached collections.
// Reducers return a new State and never modify the one they were given, so
// a snapshot handed to a reader stays valid while events keep arriving.
//
// The flat collections are authoritative. Stage.Scores and Stage.ChartPool
// are kept in step with them; Round.Stages and Round.PlayerRounds are only
// preserved across round updates.
type State struct {
	Players      []domain.Player      `json:"players"`
	Rounds       []domain.Round       `json:"rounds"`
	Stages       []domain.Stage       `json:"stages"`
	PlayerRounds []domain.PlayerRound `json:"player_rounds"`
	Scores       []domain.Score       `json:"scores"`
}

// NewState builds a snapshot from freshly loaded rows. Scores hydrated on
// stages are collected into the Scores collection and entries without a
// display name get one from players.
func NewState(players []domain.Player, rounds []domain.Round, stages []domain.Stage, entries []domain.PlayerRound) State {
	s := State{
		Players:      sortByID(slices.Clone(players), playerID),
		Rounds:       sortByID(slices.Clone(rounds), roundID),
		Stages:       sortByID(slices.Clone(stages), stageID),
		PlayerRounds: sortByID(slices.Clone(entries), playerRoundID),
	}
	for i := range s.Stages {
		s.Stages[i].Scores = sortByID(slices.Clone(s.Stages[i].Scores), scoreID)
		s.Stages[i].ChartPool = sortByID(slices.Clone(s.Stages[i].ChartPool), stageChartID)
		s.Scores = append(s.Scores, s.Stages[i].Scores...)
	}
	s.Scores = sortByID(s.Scores, scoreID)
	for i := range s.PlayerRounds {
		if s.PlayerRounds[i].PlayerName == "" {
			s.PlayerRounds[i].PlayerName = s.playerName(s.PlayerRounds[i].PlayerID)
		}
	}
	return s
}

func (s State) Round(id uint) (domain.Round, bool) {
	return find(s.Rounds, id, roundID)
}

func (s State) Stage(id uint) (domain.Stage, bool) {
	return find(s.Stages, id, stageID)
}

func (s State) PlayerRound(id uint) (domain.PlayerRound, bool) {
	return find(s.PlayerRounds, id, playerRoundID)
}

func (s State) Score(id uint) (domain.Score, bool) {
	return find(s.Scores, id, scoreID)
}

// RoundStages returns the cached stages of a round in id order.
func (s State) RoundStages(id uint) []domain.Stage {
	var out []domain.Stage
	for _, stage := range s.Stages {
		if stage.RoundID == id {
			out = append(out, stage)
		}
	}
	return out
}

// RoundEntries returns the cached player round entries of a round.
func (s State) RoundEntries(id uint) []domain.PlayerRound {
	var out []domain.PlayerRound
	for _, entry := range s.PlayerRounds {
		if entry.RoundID == id {
			out = append(out, entry)
		}
	}
	return out
}

func (s State) playerName(id uint) string {
	if p, ok := find(s.Players, id, playerID); ok {
		return p.Name
	}
	return ""
}

// chart finds a chart already cached on any stage.
func (s State) chart(id uint) *domain.Chart {
	for _, stage := range s.Stages {
		if c := stage.PoolChart(id); c != nil {
			return c
		}
		if stage.ChosenChart != nil && stage.ChosenChart.ID == id {
			return stage.ChosenChart
		}
	}
	return nil
}

func playerID(p domain.Player) uint           { return p.ID }
func roundID(r domain.Round) uint             { return r.ID }
func stageID(s domain.Stage) uint             { return s.ID }
func playerRoundID(e domain.PlayerRound) uint { return e.ID }
func scoreID(s domain.Score) uint             { return s.ID }
func stageChartID(c domain.StageChart) uint   { return c.ID }

func sortByID[T any](items []T, id func(T) uint) []T {
	slices.SortStableFunc(items, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return items
}

func find[T any](items []T, id uint, idOf func(T) uint) (T, bool) {
	i, ok := slices.BinarySearchFunc(items, id, func(item T, target uint) int {
		return cmp.Compare(idOf(item), target)
	})
	if !ok {
		var zero T
		return zero, false
	}
	return items[i], true
}

// upsert returns a copy of items with item inserted or replaced, keeping id
// order.
func upsert[T any](items []T, item T, idOf func(T) uint) []T {
	i, ok := slices.BinarySearchFunc(items, idOf(item), func(el T, target uint) int {
		return cmp.Compare(idOf(el), target)
	})
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, item)
	if ok {
		i++
	}
	return append(out, items[i:]...)
}

// remove returns a copy of items without the element with the given id.
// items is returned as is when nothing matches.
func remove[T any](items []T, id uint, idOf func(T) uint) []T {
	return removeWhere(items, func(el T) bool { return idOf(el) == id })
}

func removeWhere[T any](items []T, drop func(T) bool) []T {
	if !slices.ContainsFunc(items, drop) {
		return items
	}
	out := make([]T, 0, len(items))
	for _, el := range items {
		if !drop(el) {
			out = append(out, el)
		}
	}
	return out
}
