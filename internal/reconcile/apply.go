package reconcile

import (
	"fmt"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/domain"
)

// Apply folds one change event into the snapshot. Events for tables the
// reconciler does not cache are ignored.
func Apply(s State, ev changefeed.Event) (State, error) {
	fields, err := ev.Fields()
	if err != nil {
		return s, fmt.Errorf("%w: malformed %s row: %v", domain.ErrValidation, ev.Table, err)
	}

	switch ev.Table {
	case changefeed.TablePlayers:
		var in domain.Player
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeletePlayer(s, in), nil
		}
		return UpsertPlayer(s, in), nil

	case changefeed.TableRounds:
		var in domain.Round
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeleteRound(s, in), nil
		}
		return UpsertRound(s, in, fields), nil

	case changefeed.TableStages:
		var in domain.Stage
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeleteStage(s, in), nil
		}
		return UpsertStage(s, in, fields), nil

	case changefeed.TablePlayerRounds:
		var in domain.PlayerRound
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeletePlayerRound(s, in), nil
		}
		return UpsertPlayerRound(s, in, fields), nil

	case changefeed.TableScores:
		var in domain.Score
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeleteScore(s, in), nil
		}
		return UpsertScore(s, in), nil

	case changefeed.TableStageCharts:
		var in domain.StageChart
		if err := ev.Decode(&in); err != nil {
			return s, decodeErr(ev, err)
		}
		if ev.Kind == changefeed.KindDelete {
			return DeleteStageChart(s, in), nil
		}
		return UpsertStageChart(s, in, fields), nil
	}
	return s, nil
}

func decodeErr(ev changefeed.Event, err error) error {
	return fmt.Errorf("%w: decode %s %s row: %v", domain.ErrValidation, ev.Kind, ev.Table, err)
}
