package ranking

import "github.com/dom/gauntlet/internal/domain"

// StageResult is one player's view of one stage.
type StageResult struct {
	Stage *domain.Stage
	Score *domain.Score
	Chart *domain.Chart
}

// IndexScores resolves, for every stage, the entry's score and the chart it
// was played on. Stages with a score resolve their chart through the chart
// pool entry matching the chosen chart; stages without one fall back to the
// directly chosen chart so already-decided stages still display it.
func IndexScores(entry domain.PlayerRound, stages []domain.Stage) []StageResult {
	results := make([]StageResult, len(stages))
	for i := range stages {
		stage := &stages[i]
		result := StageResult{Stage: stage}

		if score := stage.ScoreFor(entry.ID); score != nil {
			result.Score = score
			if stage.ChosenChartID != nil {
				result.Chart = stage.PoolChart(*stage.ChosenChartID)
			}
		} else {
			result.Chart = stage.ChosenChart
		}

		results[i] = result
	}
	return results
}
