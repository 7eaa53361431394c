package changefeed_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (r *recorder) handle(ev changefeed.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []changefeed.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]changefeed.Event(nil), r.events...)
}

func (r *recorder) table(name string) []changefeed.Event {
	var out []changefeed.Event
	for _, ev := range r.snapshot() {
		if ev.Table == name {
			out = append(out, ev)
		}
	}
	return out
}

func TestEvent(t *testing.T) {
	ev, err := changefeed.NewEvent(changefeed.TableScores, changefeed.KindInsert, map[string]interface{}{
		"id":              7,
		"stage_id":        3,
		"player_round_id": 4,
		"value":           12.5,
	})
	require.NoError(t, err)
	assert.False(t, ev.At.IsZero())

	var score domain.Score
	require.NoError(t, ev.Decode(&score))
	assert.Equal(t, uint(7), score.ID)
	assert.Equal(t, 12.5, score.Value)

	fields, err := ev.Fields()
	require.NoError(t, err)
	assert.True(t, fields["stage_id"])
	assert.False(t, fields["chart_pool"])
}

func TestLocalBus(t *testing.T) {
	bus := changefeed.NewLocalBus()
	ctx := context.Background()

	var a, b recorder
	cancelA, err := bus.Subscribe(a.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(b.handle)
	require.NoError(t, err)

	ev := changefeed.Event{Table: changefeed.TableRounds, Kind: changefeed.KindUpdate, Row: []byte(`{"id":1}`)}
	require.NoError(t, bus.Publish(ctx, ev))
	assert.Len(t, a.snapshot(), 1)
	assert.Len(t, b.snapshot(), 1)

	cancelA()
	require.NoError(t, bus.Publish(ctx, ev))
	assert.Len(t, a.snapshot(), 1)
	assert.Len(t, b.snapshot(), 2)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(ctx, ev), changefeed.ErrClosed)
	_, err = bus.Subscribe(a.handle)
	assert.ErrorIs(t, err, changefeed.ErrClosed)
}

func TestRegisterCallbacks(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	bus := changefeed.NewLocalBus()
	require.NoError(t, changefeed.RegisterCallbacks(testDB.DB, bus, testutil.Logger()))

	var rec recorder
	_, err := bus.Subscribe(rec.handle)
	require.NoError(t, err)

	tourney := testutil.NewTourneyBuilder().Build(t, testDB.DB)
	round := testutil.NewRoundBuilder(tourney.ID).WithPoints(3, 1).Build(t, testDB.DB)
	players := testutil.CreatePlayers(t, testDB.DB, tourney.ID, "alice")
	entry := testutil.Register(t, testDB.DB, round.ID, players[0].ID)
	stage := testutil.CreateStage(t, testDB.DB, round.ID, testutil.CreateChart(t, testDB.DB, "Song").ID)
	score := testutil.CreateScore(t, testDB.DB, stage.ID, entry.ID, 42)

	t.Run("watched tables only", func(t *testing.T) {
		for _, ev := range rec.snapshot() {
			assert.Contains(t, changefeed.DefaultTables, ev.Table)
		}
		assert.Len(t, rec.table(changefeed.TablePlayers), 1)
		assert.Len(t, rec.table(changefeed.TableRounds), 1)
		assert.Len(t, rec.table(changefeed.TableStages), 1)
		assert.Len(t, rec.table(changefeed.TableStageCharts), 1)
		assert.Len(t, rec.table(changefeed.TablePlayerRounds), 1)
	})

	t.Run("rows carry columns only", func(t *testing.T) {
		ev := rec.table(changefeed.TableRounds)[0]
		assert.Equal(t, changefeed.KindInsert, ev.Kind)

		var got domain.Round
		require.NoError(t, ev.Decode(&got))
		assert.Equal(t, round.ID, got.ID)
		assert.Equal(t, []int{3, 1}, []int(got.PointsPerStage))

		fields, err := ev.Fields()
		require.NoError(t, err)
		assert.True(t, fields["next_round_id"])
		assert.False(t, fields["stages"])
		assert.False(t, fields["player_rounds"])
	})

	t.Run("update and delete", func(t *testing.T) {
		score.Value = 50
		require.NoError(t, testDB.DB.Save(score).Error)
		require.NoError(t, testDB.DB.Delete(score).Error)

		events := rec.table(changefeed.TableScores)
		require.Len(t, events, 3)
		assert.Equal(t, changefeed.KindInsert, events[0].Kind)
		assert.Equal(t, changefeed.KindUpdate, events[1].Kind)
		assert.Equal(t, changefeed.KindDelete, events[2].Kind)

		var deleted domain.Score
		require.NoError(t, events[2].Decode(&deleted))
		assert.Equal(t, score.ID, deleted.ID)
		assert.Equal(t, stage.ID, deleted.StageID)
	})

	t.Run("failed writes publish nothing", func(t *testing.T) {
		before := len(rec.table(changefeed.TableScores))
		err := testDB.DB.Create(&domain.Score{StageID: stage.ID, PlayerRoundID: entry.ID, Value: 1}).Error
		require.NoError(t, err)
		err = testDB.DB.Create(&domain.Score{StageID: stage.ID, PlayerRoundID: entry.ID, Value: 2}).Error
		require.Error(t, err)
		assert.Len(t, rec.table(changefeed.TableScores), before+1)
	})
}

func newNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start nats container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		t.Fatalf("failed to get nats endpoint: %v", err)
	}
	return endpoint
}

func TestNATSBus(t *testing.T) {
	url := newNATS(t)
	ctx := context.Background()

	publisher, err := changefeed.ConnectNATS(url, "gauntlet.test", testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { publisher.Close() })

	subscriber, err := changefeed.ConnectNATS(url, "gauntlet.test", testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { subscriber.Close() })

	other, err := changefeed.ConnectNATS(url, "elsewhere", testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { other.Close() })

	var rec recorder
	cancel, err := subscriber.Subscribe(rec.handle)
	require.NoError(t, err)
	defer cancel()

	ev, err := changefeed.NewEvent(changefeed.TableStages, changefeed.KindInsert, map[string]interface{}{"id": 9, "round_id": 2})
	require.NoError(t, err)
	require.NoError(t, other.Publish(ctx, ev))
	require.NoError(t, publisher.Publish(ctx, ev))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)

	got := rec.snapshot()[0]
	assert.Equal(t, changefeed.TableStages, got.Table)
	assert.JSONEq(t, string(ev.Row), string(got.Row))

	// nothing from the other prefix trails in
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}
