package ranking

import (
	"cmp"
	"slices"

	"github.com/dom/gauntlet/internal/domain"
)

// Standing is one ranked player round entry.
type Standing struct {
	PlayerRoundID uint    `json:"player_round_id"`
	Total         float64 `json:"total"`
}

// Result is the ranking of one round.
type Result struct {
	// Standings is ordered most favourable first.
	Standings []Standing `json:"standings"`
	// Cumulative is each entry's raw score sum across all stages.
	Cumulative map[uint]float64 `json:"cumulative"`
	// Points holds awarded points per entry and stage. Empty in cumulative mode.
	Points map[uint]map[uint]int `json:"points"`
}

// Advancing splits the standings at cutoff. A cutoff larger than the field
// advances everyone.
func (r Result) Advancing(cutoff int) (advancing, remaining []uint) {
	cutoff = max(0, min(cutoff, len(r.Standings)))
	for i, s := range r.Standings {
		if i < cutoff {
			advancing = append(advancing, s.PlayerRoundID)
		} else {
			remaining = append(remaining, s.PlayerRoundID)
		}
	}
	return advancing, remaining
}

// Calculate ranks entries from the scores hydrated on stages. A non-empty
// pointsPerStage selects points mode, otherwise totals are cumulative scores.
// Equal totals keep ascending entry id order, so the result only depends on
// the data and not on input order.
func Calculate(entries []domain.PlayerRound, stages []domain.Stage, pointsPerStage []int) Result {
	ids := make([]uint, 0, len(entries))
	known := make(map[uint]bool, len(entries))
	for _, e := range entries {
		if !known[e.ID] {
			known[e.ID] = true
			ids = append(ids, e.ID)
		}
	}
	slices.Sort(ids)

	stageOrder := make([]*domain.Stage, len(stages))
	for i := range stages {
		stageOrder[i] = &stages[i]
	}
	slices.SortStableFunc(stageOrder, func(a, b *domain.Stage) int {
		return cmp.Compare(a.ID, b.ID)
	})

	result := Result{
		Cumulative: make(map[uint]float64, len(ids)),
		Points:     make(map[uint]map[uint]int),
	}
	for _, id := range ids {
		result.Cumulative[id] = 0
	}
	for _, stage := range stageOrder {
		for _, score := range stage.Scores {
			if known[score.PlayerRoundID] {
				result.Cumulative[score.PlayerRoundID] += score.Value
			}
		}
	}

	totals := make(map[uint]float64, len(ids))
	if len(pointsPerStage) > 0 {
		for _, id := range ids {
			result.Points[id] = make(map[uint]int, len(stageOrder))
		}
		for _, stage := range stageOrder {
			for id, pts := range awardStage(stage, known, pointsPerStage) {
				result.Points[id][stage.ID] = pts
				totals[id] += float64(pts)
			}
			for _, id := range ids {
				if _, ok := result.Points[id][stage.ID]; !ok {
					result.Points[id][stage.ID] = 0
				}
			}
		}
	} else {
		for _, id := range ids {
			totals[id] = result.Cumulative[id]
		}
	}

	result.Standings = make([]Standing, len(ids))
	for i, id := range ids {
		result.Standings[i] = Standing{PlayerRoundID: id, Total: totals[id]}
	}

	pointsMode := len(pointsPerStage) > 0
	slices.SortStableFunc(result.Standings, func(a, b Standing) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		if pointsMode {
			if c := cmp.Compare(result.Cumulative[b.PlayerRoundID], result.Cumulative[a.PlayerRoundID]); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.PlayerRoundID, b.PlayerRoundID)
	})

	return result
}

// awardStage ranks the scored entries of one stage and awards each group of
// equal scores the scale value at the group's starting index.
func awardStage(stage *domain.Stage, known map[uint]bool, scale []int) map[uint]int {
	scored := make([]domain.Score, 0, len(stage.Scores))
	seen := make(map[uint]bool, len(stage.Scores))
	for _, score := range stage.Scores {
		if !known[score.PlayerRoundID] || seen[score.PlayerRoundID] {
			continue
		}
		seen[score.PlayerRoundID] = true
		scored = append(scored, score)
	}
	slices.SortStableFunc(scored, func(a, b domain.Score) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerRoundID, b.PlayerRoundID)
	})

	awarded := make(map[uint]int, len(scored))
	for start := 0; start < len(scored); {
		end := start + 1
		for end < len(scored) && scored[end].Value == scored[start].Value {
			end++
		}
		pts := 0
		if start < len(scale) {
			pts = scale[start]
		}
		for _, score := range scored[start:end] {
			awarded[score.PlayerRoundID] = pts
		}
		start = end
	}
	return awarded
}
