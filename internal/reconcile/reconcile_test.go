package reconcile_test

import (
	"testing"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func event(t *testing.T, table string, kind changefeed.Kind, row map[string]interface{}) changefeed.Event {
	t.Helper()
	ev, err := changefeed.NewEvent(table, kind, row)
	require.NoError(t, err)
	return ev
}

// fixture: one round, two stages, two entries, scores on both stages.
func fixture() reconcile.State {
	chart := &domain.Chart{ID: 9, Name: "Nine"}
	return reconcile.NewState(
		[]domain.Player{{ID: 1, TourneyID: 1, Name: "alice"}, {ID: 2, TourneyID: 1, Name: "bob"}, {ID: 3, TourneyID: 1, Name: "carol"}},
		[]domain.Round{{ID: 1, TourneyID: 1, Name: "R1", Status: domain.StatusInProgress, PlayersAdvancing: 1}},
		[]domain.Stage{
			{
				ID: 1, RoundID: 1, ChosenChartID: ptr(uint(9)), ChosenChart: chart,
				ChartPool: []domain.StageChart{{ID: 1, StageID: 1, ChartID: 9, Chart: chart}},
				Scores: []domain.Score{
					{ID: 11, StageID: 1, PlayerRoundID: 1, Value: 100},
					{ID: 12, StageID: 1, PlayerRoundID: 2, Value: 90},
				},
			},
			{
				ID: 2, RoundID: 1,
				Scores: []domain.Score{{ID: 21, StageID: 2, PlayerRoundID: 1, Value: 80}},
			},
		},
		[]domain.PlayerRound{{ID: 1, RoundID: 1, PlayerID: 1}, {ID: 2, RoundID: 1, PlayerID: 2}},
	)
}

func TestNewState(t *testing.T) {
	s := fixture()
	assert.Len(t, s.Scores, 3)

	entry, ok := s.PlayerRound(2)
	require.True(t, ok)
	assert.Equal(t, "bob", entry.PlayerName)
}

func TestApply_StageUpdateKeepsHydratedRelations(t *testing.T) {
	before := fixture()

	after, err := reconcile.Apply(before, event(t, changefeed.TableStages, changefeed.KindUpdate, map[string]interface{}{
		"id": 1, "round_id": 1, "chosen_chart_id": 9,
	}))
	require.NoError(t, err)

	stage, ok := after.Stage(1)
	require.True(t, ok)
	assert.Len(t, stage.Scores, 2)
	assert.Len(t, stage.ChartPool, 1)
	require.NotNil(t, stage.ChosenChart)
	assert.Equal(t, "Nine", stage.ChosenChart.Name)
}

func TestApply_StageUpdateWithScoresReplacesThem(t *testing.T) {
	after, err := reconcile.Apply(fixture(), event(t, changefeed.TableStages, changefeed.KindUpdate, map[string]interface{}{
		"id": 2, "round_id": 1, "scores": []interface{}{},
	}))
	require.NoError(t, err)

	stage, _ := after.Stage(2)
	assert.Empty(t, stage.Scores)
}

func TestApply_DeleteScoreTouchesOnlyOwningStage(t *testing.T) {
	before := fixture()

	after, err := reconcile.Apply(before, event(t, changefeed.TableScores, changefeed.KindDelete, map[string]interface{}{
		"id": 11,
	}))
	require.NoError(t, err)

	_, ok := after.Score(11)
	assert.False(t, ok)

	stage1, _ := after.Stage(1)
	require.Len(t, stage1.Scores, 1)
	assert.Equal(t, uint(12), stage1.Scores[0].ID)

	stage2, _ := after.Stage(2)
	assert.Len(t, stage2.Scores, 1)

	// input snapshot untouched
	old, _ := before.Stage(1)
	assert.Len(t, old.Scores, 2)
	_, ok = before.Score(11)
	assert.True(t, ok)
}

func TestApply_ScoreUpsert(t *testing.T) {
	s := fixture()

	t.Run("insert attaches to stage", func(t *testing.T) {
		after, err := reconcile.Apply(s, event(t, changefeed.TableScores, changefeed.KindInsert, map[string]interface{}{
			"id": 22, "stage_id": 2, "player_round_id": 2, "value": 95,
		}))
		require.NoError(t, err)
		stage, _ := after.Stage(2)
		assert.Len(t, stage.Scores, 2)
		assert.Len(t, after.Scores, 4)
	})

	t.Run("update is last write wins and idempotent", func(t *testing.T) {
		ev := event(t, changefeed.TableScores, changefeed.KindUpdate, map[string]interface{}{
			"id": 12, "stage_id": 1, "player_round_id": 2, "value": 120,
		})
		once, err := reconcile.Apply(s, ev)
		require.NoError(t, err)
		twice, err := reconcile.Apply(once, ev)
		require.NoError(t, err)
		assert.Equal(t, once, twice)

		stage, _ := twice.Stage(1)
		assert.Equal(t, 120.0, stage.ScoreFor(2).Value)
	})

	t.Run("score arriving before its stage is picked up", func(t *testing.T) {
		after, err := reconcile.Apply(s, event(t, changefeed.TableScores, changefeed.KindInsert, map[string]interface{}{
			"id": 31, "stage_id": 3, "player_round_id": 1, "value": 50,
		}))
		require.NoError(t, err)
		after, err = reconcile.Apply(after, event(t, changefeed.TableStages, changefeed.KindInsert, map[string]interface{}{
			"id": 3, "round_id": 1,
		}))
		require.NoError(t, err)

		stage, ok := after.Stage(3)
		require.True(t, ok)
		require.Len(t, stage.Scores, 1)
		assert.Equal(t, uint(31), stage.Scores[0].ID)
	})
}

func TestApply_PlayerRoundUpsertAttachesName(t *testing.T) {
	after, err := reconcile.Apply(fixture(), event(t, changefeed.TablePlayerRounds, changefeed.KindInsert, map[string]interface{}{
		"id": 3, "round_id": 1, "player_id": 3,
	}))
	require.NoError(t, err)

	entry, ok := after.PlayerRound(3)
	require.True(t, ok)
	assert.Equal(t, "carol", entry.PlayerName)

	// update without a name keeps it
	after, err = reconcile.Apply(after, event(t, changefeed.TablePlayerRounds, changefeed.KindUpdate, map[string]interface{}{
		"id": 3, "round_id": 1, "player_id": 3,
	}))
	require.NoError(t, err)
	entry, _ = after.PlayerRound(3)
	assert.Equal(t, "carol", entry.PlayerName)
}

func TestApply_PlayerArrivingLate(t *testing.T) {
	t.Run("entry after player", func(t *testing.T) {
		after, err := reconcile.Apply(fixture(), event(t, changefeed.TablePlayers, changefeed.KindInsert, map[string]interface{}{
			"id": 4, "tourney_id": 1, "name": "dave",
		}))
		require.NoError(t, err)
		assert.Len(t, after.Players, 4)

		after, err = reconcile.Apply(after, event(t, changefeed.TablePlayerRounds, changefeed.KindInsert, map[string]interface{}{
			"id": 3, "round_id": 1, "player_id": 4,
		}))
		require.NoError(t, err)
		entry, ok := after.PlayerRound(3)
		require.True(t, ok)
		assert.Equal(t, "dave", entry.PlayerName)
	})

	t.Run("player after entry backfills the name", func(t *testing.T) {
		before, err := reconcile.Apply(fixture(), event(t, changefeed.TablePlayerRounds, changefeed.KindInsert, map[string]interface{}{
			"id": 3, "round_id": 1, "player_id": 4,
		}))
		require.NoError(t, err)
		entry, _ := before.PlayerRound(3)
		assert.Empty(t, entry.PlayerName)

		after, err := reconcile.Apply(before, event(t, changefeed.TablePlayers, changefeed.KindInsert, map[string]interface{}{
			"id": 4, "tourney_id": 1, "name": "dave",
		}))
		require.NoError(t, err)
		entry, _ = after.PlayerRound(3)
		assert.Equal(t, "dave", entry.PlayerName)

		entry, _ = before.PlayerRound(3)
		assert.Empty(t, entry.PlayerName, "earlier snapshot must not change")
	})

	t.Run("delete keeps entries", func(t *testing.T) {
		after, err := reconcile.Apply(fixture(), event(t, changefeed.TablePlayers, changefeed.KindDelete, map[string]interface{}{
			"id": 2, "tourney_id": 1,
		}))
		require.NoError(t, err)
		assert.Len(t, after.Players, 2)
		_, ok := after.PlayerRound(2)
		assert.True(t, ok)
	})
}

func TestApply_Deletes(t *testing.T) {
	t.Run("player round removes its scores everywhere", func(t *testing.T) {
		after, err := reconcile.Apply(fixture(), event(t, changefeed.TablePlayerRounds, changefeed.KindDelete, map[string]interface{}{
			"id": 1, "round_id": 1, "player_id": 1,
		}))
		require.NoError(t, err)
		assert.Len(t, after.Scores, 1)
		stage1, _ := after.Stage(1)
		assert.Len(t, stage1.Scores, 1)
		stage2, _ := after.Stage(2)
		assert.Empty(t, stage2.Scores)
	})

	t.Run("stage removes its scores", func(t *testing.T) {
		after, err := reconcile.Apply(fixture(), event(t, changefeed.TableStages, changefeed.KindDelete, map[string]interface{}{
			"id": 1, "round_id": 1,
		}))
		require.NoError(t, err)
		assert.Len(t, after.Stages, 1)
		assert.Len(t, after.Scores, 1)
	})

	t.Run("round cascades", func(t *testing.T) {
		after, err := reconcile.Apply(fixture(), event(t, changefeed.TableRounds, changefeed.KindDelete, map[string]interface{}{
			"id": 1,
		}))
		require.NoError(t, err)
		assert.Empty(t, after.Rounds)
		assert.Empty(t, after.Stages)
		assert.Empty(t, after.PlayerRounds)
		assert.Empty(t, after.Scores)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before := fixture()
		after, err := reconcile.Apply(before, event(t, changefeed.TableScores, changefeed.KindDelete, map[string]interface{}{
			"id": 999,
		}))
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestApply_RoundUpdatePreservesRelations(t *testing.T) {
	s := reconcile.NewState(nil, []domain.Round{{
		ID: 1, TourneyID: 1, Status: domain.StatusNotStarted,
		Stages: []domain.Stage{{ID: 5, RoundID: 1}},
	}}, nil, nil)

	after, err := reconcile.Apply(s, event(t, changefeed.TableRounds, changefeed.KindUpdate, map[string]interface{}{
		"id": 1, "tourney_id": 1, "status": "in_progress", "points_per_stage": []int{3, 1},
	}))
	require.NoError(t, err)

	round, _ := after.Round(1)
	assert.Equal(t, domain.StatusInProgress, round.Status)
	assert.True(t, round.PointsMode())
	assert.Len(t, round.Stages, 1)
}

func TestApply_StageChartPool(t *testing.T) {
	after, err := reconcile.Apply(fixture(), event(t, changefeed.TableStageCharts, changefeed.KindInsert, map[string]interface{}{
		"id": 2, "stage_id": 2, "chart_id": 9,
	}))
	require.NoError(t, err)

	stage, _ := after.Stage(2)
	require.Len(t, stage.ChartPool, 1)
	require.NotNil(t, stage.ChartPool[0].Chart)
	assert.Equal(t, "Nine", stage.ChartPool[0].Chart.Name)
}

func TestApply_IgnoresUnknownTables(t *testing.T) {
	before := fixture()
	after, err := reconcile.Apply(before, event(t, "users", changefeed.KindInsert, map[string]interface{}{"id": 1}))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMirror_Apply(t *testing.T) {
	m := reconcile.NewMirror(1, fixture())

	applied, err := m.Apply(event(t, changefeed.TableRounds, changefeed.KindInsert, map[string]interface{}{
		"id": 2, "tourney_id": 2, "name": "other",
	}))
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = m.Apply(event(t, changefeed.TableRounds, changefeed.KindInsert, map[string]interface{}{
		"id": 3, "tourney_id": 1, "name": "R2",
	}))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = m.Apply(event(t, changefeed.TableStages, changefeed.KindInsert, map[string]interface{}{
		"id": 7, "round_id": 3,
	}))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = m.Apply(event(t, changefeed.TablePlayers, changefeed.KindInsert, map[string]interface{}{
		"id": 8, "tourney_id": 2, "name": "outsider",
	}))
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = m.Apply(event(t, changefeed.TablePlayers, changefeed.KindInsert, map[string]interface{}{
		"id": 4, "tourney_id": 1, "name": "dave",
	}))
	require.NoError(t, err)
	assert.True(t, applied)

	snap := m.Snapshot()
	assert.Len(t, snap.Rounds, 2)
	assert.Len(t, snap.RoundStages(3), 1)
	assert.Len(t, snap.Players, 4)
}
