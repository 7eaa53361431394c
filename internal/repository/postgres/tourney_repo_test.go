package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository/postgres"
	"github.com/dom/gauntlet/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTourneyRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	t.Run("slug lookup", func(t *testing.T) {
		testDB.Truncate(t)
		creator, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
		tourney := &domain.Tourney{Name: "Spring Open", Slug: "spring-open", CreatedBy: creator.ID}
		require.NoError(t, repos.Tourney.Create(ctx, tourney))

		got, err := repos.Tourney.GetBySlug(ctx, "spring-open")
		require.NoError(t, err)
		assert.Equal(t, tourney.ID, got.ID)
		assert.Equal(t, domain.StatusNotStarted, got.Status)
		assert.Equal(t, domain.TourneyTypeGauntlet, got.Type)

		_, err = repos.Tourney.GetBySlug(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		testDB.Truncate(t)
		creator, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
		require.NoError(t, repos.Tourney.Create(ctx, &domain.Tourney{Name: "A", Slug: "a", CreatedBy: creator.ID}))

		err := repos.Tourney.Create(ctx, &domain.Tourney{Name: "A", Slug: "a", CreatedBy: creator.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("admins", func(t *testing.T) {
		testDB.Truncate(t)
		creator, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
		tourney := testutil.NewTourneyBuilder().WithCreator(creator).Build(t, testDB.DB)

		ok, err := repos.Tourney.IsAdmin(ctx, tourney.ID, creator.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		other := uuid.New()
		ok, err = repos.Tourney.IsAdmin(ctx, tourney.ID, other)
		require.NoError(t, err)
		assert.False(t, ok)

		err = repos.Tourney.AddAdmin(ctx, tourney.ID, creator.ID)
		assert.ErrorIs(t, err, domain.ErrValidation)

		later := testutil.NewTourneyBuilder().Build(t, testDB.DB)
		require.NoError(t, repos.Tourney.AddAdmin(ctx, later.ID, creator.ID))
		administered, err := repos.Tourney.ListAdministered(ctx, creator.ID)
		require.NoError(t, err)
		require.Len(t, administered, 2)
		assert.Equal(t, later.ID, administered[0].ID)
		assert.Equal(t, tourney.ID, administered[1].ID)

		administered, err = repos.Tourney.ListAdministered(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, administered)
	})

	t.Run("list newest first", func(t *testing.T) {
		testDB.Truncate(t)
		first := testutil.NewTourneyBuilder().Build(t, testDB.DB)
		second := testutil.NewTourneyBuilder().Build(t, testDB.DB)

		got, err := repos.Tourney.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, first.ID, got[1].ID)
	})
}

func TestRoundRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	t.Run("earliest and redemption", func(t *testing.T) {
		testDB.Truncate(t)
		tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
		final := testutil.NewRoundBuilder(tourney.ID).WithName("Final").Build(t, testDB.DB)
		opener := testutil.NewRoundBuilder(tourney.ID).WithName("Opener").WithNext(final.ID).Build(t, testDB.DB)
		redemption := testutil.NewRoundBuilder(tourney.ID).WithName("Redemption").WithParent(opener.ID).Build(t, testDB.DB)
		testutil.NewRoundBuilder(tourney.ID).WithName("Second chance").WithParent(opener.ID).Build(t, testDB.DB)

		earliest, err := repos.Round.GetEarliest(ctx, tourney.ID)
		require.NoError(t, err)
		assert.Equal(t, final.ID, earliest.ID)

		got, err := repos.Round.GetRedemption(ctx, opener.ID)
		require.NoError(t, err)
		assert.Equal(t, redemption.ID, got.ID)

		_, err = repos.Round.GetRedemption(ctx, final.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("no rounds", func(t *testing.T) {
		testDB.Truncate(t)
		tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)

		_, err := repos.Round.GetEarliest(ctx, tourney.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("points scale round trip", func(t *testing.T) {
		testDB.Truncate(t)
		tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
		round := &domain.Round{TourneyID: tourney.ID, Name: "Points", PlayersAdvancing: 2, PointsPerStage: []int{3, 2, 1}}
		require.NoError(t, repos.Round.Create(ctx, round))

		got, err := repos.Round.GetByID(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2, 1}, []int(got.PointsPerStage))

		cumulative := &domain.Round{TourneyID: tourney.ID, Name: "Cumulative", PlayersAdvancing: 1}
		require.NoError(t, repos.Round.Create(ctx, cumulative))
		got, err = repos.Round.GetByID(ctx, cumulative.ID)
		require.NoError(t, err)
		assert.Empty(t, got.PointsPerStage)
	})
}

func TestPlayerRoundRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(tourney.ID).Build(t, testDB.DB)
	players := testutil.CreatePlayers(t, testDB.DB, tourney.ID, "alice", "bob")

	entry := &domain.PlayerRound{RoundID: round.ID, PlayerID: players[0].ID}
	require.NoError(t, repos.PlayerRound.Create(ctx, entry))
	require.NoError(t, repos.PlayerRound.Create(ctx, &domain.PlayerRound{RoundID: round.ID, PlayerID: players[1].ID}))

	t.Run("duplicate registration", func(t *testing.T) {
		err := repos.PlayerRound.Create(ctx, &domain.PlayerRound{RoundID: round.ID, PlayerID: players[0].ID})
		assert.ErrorIs(t, err, domain.ErrDuplicateRegistration)
	})

	t.Run("unknown player", func(t *testing.T) {
		err := repos.PlayerRound.Create(ctx, &domain.PlayerRound{RoundID: round.ID, PlayerID: 9999})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("names are hydrated", func(t *testing.T) {
		got, err := repos.PlayerRound.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.PlayerName)

		entries, err := repos.PlayerRound.GetByRoundID(ctx, round.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].PlayerName)
		assert.Equal(t, "bob", entries[1].PlayerName)

		count, err := repos.PlayerRound.CountByRoundID(ctx, round.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestStageRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(tourney.ID).Build(t, testDB.DB)
	players := testutil.CreatePlayers(t, testDB.DB, tourney.ID, "alice")
	entry := testutil.Register(t, testDB.DB, round.ID, players[0].ID)
	easy := testutil.CreateChart(t, testDB.DB, "Easy Song")
	hard := testutil.CreateChart(t, testDB.DB, "Hard Song")
	stage := testutil.CreateStage(t, testDB.DB, round.ID, easy.ID, hard.ID)

	t.Run("hydrates relations", func(t *testing.T) {
		stage.ChosenChartID = &hard.ID
		require.NoError(t, repos.Stage.Update(ctx, stage))
		testutil.CreateScore(t, testDB.DB, stage.ID, entry.ID, 950_000)

		got, err := repos.Stage.GetByID(ctx, stage.ID)
		require.NoError(t, err)
		require.Len(t, got.ChartPool, 2)
		assert.Equal(t, "Easy Song", got.ChartPool[0].Chart.Name)
		assert.Equal(t, "Hard Song", got.ChartPool[1].Chart.Name)
		require.NotNil(t, got.ChosenChart)
		assert.Equal(t, hard.ID, got.ChosenChart.ID)
		require.Len(t, got.Scores, 1)
		assert.Equal(t, 950_000.0, got.Scores[0].Value)

		stages, err := repos.Stage.GetByRoundID(ctx, round.ID)
		require.NoError(t, err)
		require.Len(t, stages, 1)
		assert.Len(t, stages[0].ChartPool, 2)
	})

	t.Run("pool membership", func(t *testing.T) {
		err := repos.Stage.AddToPool(ctx, &domain.StageChart{StageID: stage.ID, ChartID: easy.ID})
		assert.ErrorIs(t, err, domain.ErrValidation)

		require.NoError(t, repos.Stage.RemoveFromPool(ctx, stage.ID, easy.ID))
		err = repos.Stage.RemoveFromPool(ctx, stage.ID, easy.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := repos.Stage.GetByID(ctx, stage.ID)
		require.NoError(t, err)
		require.Len(t, got.ChartPool, 1)
		assert.Equal(t, hard.ID, got.ChartPool[0].ChartID)
	})

	t.Run("missing stage", func(t *testing.T) {
		_, err := repos.Stage.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestScoreRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(tourney.ID).Build(t, testDB.DB)
	players := testutil.CreatePlayers(t, testDB.DB, tourney.ID, "alice")
	entry := testutil.Register(t, testDB.DB, round.ID, players[0].ID)
	stage := testutil.CreateStage(t, testDB.DB, round.ID)

	score := &domain.Score{StageID: stage.ID, PlayerRoundID: entry.ID, Value: 100}
	require.NoError(t, repos.Score.Create(ctx, score))

	t.Run("duplicate score", func(t *testing.T) {
		err := repos.Score.Create(ctx, &domain.Score{StageID: stage.ID, PlayerRoundID: entry.ID, Value: 200})
		assert.ErrorIs(t, err, domain.ErrDuplicateScore)
	})

	t.Run("update", func(t *testing.T) {
		score.Value = 250
		require.NoError(t, repos.Score.Update(ctx, score))

		got, err := repos.Score.GetByID(ctx, score.ID)
		require.NoError(t, err)
		assert.Equal(t, 250.0, got.Value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repos.Score.Delete(ctx, score.ID))

		_, err := repos.Score.GetByID(ctx, score.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, repos.Score.Delete(ctx, score.ID), domain.ErrNotFound)
	})
}
