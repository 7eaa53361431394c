package reconcile

import (
	"slices"

	"github.com/dom/gauntlet/internal/domain"
)

// Fields is the set of keys an incoming payload carried. Relations missing
// from it are kept from the cached copy.
type Fields map[string]bool

// UpsertPlayer caches the player and names every cached entry that belongs
// to it.
func UpsertPlayer(s State, in domain.Player) State {
	s.Players = upsert(s.Players, in, playerID)
	if in.Name == "" || !slices.ContainsFunc(s.PlayerRounds, func(e domain.PlayerRound) bool {
		return e.PlayerID == in.ID && e.PlayerName != in.Name
	}) {
		return s
	}
	entries := slices.Clone(s.PlayerRounds)
	for i := range entries {
		if entries[i].PlayerID == in.ID {
			entries[i].PlayerName = in.Name
		}
	}
	s.PlayerRounds = entries
	return s
}

// DeletePlayer drops the player only. Its entries leave through their own
// delete events.
func DeletePlayer(s State, in domain.Player) State {
	s.Players = remove(s.Players, in.ID, playerID)
	return s
}

func UpsertRound(s State, in domain.Round, fields Fields) State {
	if cached, ok := s.Round(in.ID); ok {
		if !fields["stages"] {
			in.Stages = cached.Stages
		}
		if !fields["player_rounds"] {
			in.PlayerRounds = cached.PlayerRounds
		}
	}
	s.Rounds = upsert(s.Rounds, in, roundID)
	return s
}

// DeleteRound drops the round with its stages, entries and their scores.
func DeleteRound(s State, in domain.Round) State {
	s.Rounds = remove(s.Rounds, in.ID, roundID)

	stages := make(map[uint]bool)
	for _, stage := range s.Stages {
		if stage.RoundID == in.ID {
			stages[stage.ID] = true
		}
	}
	entries := make(map[uint]bool)
	for _, entry := range s.PlayerRounds {
		if entry.RoundID == in.ID {
			entries[entry.ID] = true
		}
	}

	s.Stages = removeWhere(s.Stages, func(st domain.Stage) bool { return stages[st.ID] })
	s.PlayerRounds = removeWhere(s.PlayerRounds, func(e domain.PlayerRound) bool { return entries[e.ID] })
	s.Scores = removeWhere(s.Scores, func(sc domain.Score) bool {
		return stages[sc.StageID] || entries[sc.PlayerRoundID]
	})
	return s
}

func UpsertStage(s State, in domain.Stage, fields Fields) State {
	cached, ok := s.Stage(in.ID)
	if !fields["scores"] {
		if ok {
			in.Scores = cached.Scores
		} else {
			// Scores may have arrived before their stage.
			in.Scores = nil
			for _, score := range s.Scores {
				if score.StageID == in.ID {
					in.Scores = append(in.Scores, score)
				}
			}
		}
	}
	if !fields["chart_pool"] && ok {
		in.ChartPool = cached.ChartPool
	}
	if !fields["chosen_chart"] {
		in.ChosenChart = nil
		if in.ChosenChartID != nil {
			if ok && cached.ChosenChart != nil && cached.ChosenChart.ID == *in.ChosenChartID {
				in.ChosenChart = cached.ChosenChart
			} else if c := in.PoolChart(*in.ChosenChartID); c != nil {
				in.ChosenChart = c
			} else {
				in.ChosenChart = s.chart(*in.ChosenChartID)
			}
		}
	}
	s.Stages = upsert(s.Stages, in, stageID)
	return s
}

// DeleteStage drops the stage and the scores recorded on it.
func DeleteStage(s State, in domain.Stage) State {
	s.Stages = remove(s.Stages, in.ID, stageID)
	s.Scores = removeWhere(s.Scores, func(sc domain.Score) bool { return sc.StageID == in.ID })
	return s
}

func UpsertPlayerRound(s State, in domain.PlayerRound, fields Fields) State {
	cached, ok := s.PlayerRound(in.ID)
	samePlayer := ok && cached.PlayerID == in.PlayerID

	if !fields["player"] {
		in.Player = nil
		if samePlayer {
			in.Player = cached.Player
		}
	}
	if !fields["player_name"] || in.PlayerName == "" {
		switch {
		case in.Player != nil && in.Player.Name != "":
			in.PlayerName = in.Player.Name
		case samePlayer && cached.PlayerName != "":
			in.PlayerName = cached.PlayerName
		default:
			in.PlayerName = s.playerName(in.PlayerID)
		}
	}
	s.PlayerRounds = upsert(s.PlayerRounds, in, playerRoundID)
	return s
}

// DeletePlayerRound drops the entry and every score it recorded.
func DeletePlayerRound(s State, in domain.PlayerRound) State {
	s.PlayerRounds = remove(s.PlayerRounds, in.ID, playerRoundID)

	stages := make(map[uint]bool)
	for _, sc := range s.Scores {
		if sc.PlayerRoundID == in.ID {
			stages[sc.StageID] = true
		}
	}
	s.Scores = removeWhere(s.Scores, func(sc domain.Score) bool { return sc.PlayerRoundID == in.ID })
	if len(stages) > 0 {
		s.Stages = cloneStages(s.Stages, func(st *domain.Stage) {
			if stages[st.ID] {
				st.Scores = removeWhere(st.Scores, func(sc domain.Score) bool { return sc.PlayerRoundID == in.ID })
			}
		})
	}
	return s
}

// UpsertScore caches the score and mirrors it into its stage's score list.
// A score that moved stages leaves its previous stage.
func UpsertScore(s State, in domain.Score) State {
	cached, ok := s.Score(in.ID)
	s.Scores = upsert(s.Scores, in, scoreID)

	s.Stages = cloneStages(s.Stages, func(st *domain.Stage) {
		switch {
		case st.ID == in.StageID:
			st.Scores = upsert(st.Scores, in, scoreID)
		case ok && st.ID == cached.StageID:
			st.Scores = remove(st.Scores, in.ID, scoreID)
		}
	})
	return s
}

// DeleteScore removes the score from the collection and from the score
// list of the stage that owns it, and from no other stage.
func DeleteScore(s State, in domain.Score) State {
	owner := in.StageID
	if cached, ok := s.Score(in.ID); ok {
		owner = cached.StageID
	}
	s.Scores = remove(s.Scores, in.ID, scoreID)
	if owner == 0 {
		return s
	}
	s.Stages = cloneStages(s.Stages, func(st *domain.Stage) {
		if st.ID == owner {
			st.Scores = remove(st.Scores, in.ID, scoreID)
		}
	})
	return s
}

func UpsertStageChart(s State, in domain.StageChart, fields Fields) State {
	s.Stages = cloneStages(s.Stages, func(st *domain.Stage) {
		if st.ID != in.StageID {
			return
		}
		if !fields["chart"] {
			in.Chart = nil
			for _, entry := range st.ChartPool {
				if entry.ID == in.ID && entry.ChartID == in.ChartID {
					in.Chart = entry.Chart
				}
			}
			if in.Chart == nil {
				in.Chart = s.chart(in.ChartID)
			}
		}
		st.ChartPool = upsert(st.ChartPool, in, stageChartID)
	})
	return s
}

func DeleteStageChart(s State, in domain.StageChart) State {
	s.Stages = cloneStages(s.Stages, func(st *domain.Stage) {
		if in.StageID == 0 || st.ID == in.StageID {
			st.ChartPool = remove(st.ChartPool, in.ID, stageChartID)
		}
	})
	return s
}

// cloneStages returns a copy of stages with edit applied to each element
// copy. Edits must replace relation slices rather than write into them.
func cloneStages(stages []domain.Stage, edit func(*domain.Stage)) []domain.Stage {
	out := make([]domain.Stage, len(stages))
	copy(out, stages)
	for i := range out {
		edit(&out[i])
	}
	return out
}
