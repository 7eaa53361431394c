package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/service"
	"github.com/dom/gauntlet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHandler_LiveChannel(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	ctx := context.Background()

	tourney := testutil.NewTourneyBuilder().WithCreator(user).WithStatus(domain.StatusInProgress).Build(t, ts.DB.DB)
	round := testutil.NewRoundBuilder(tourney.ID).WithStatus(domain.StatusInProgress).Build(t, ts.DB.DB)
	players := testutil.CreatePlayers(t, ts.DB.DB, tourney.ID, "alice", "bob")
	entry := testutil.Register(t, ts.DB.DB, round.ID, players[0].ID)
	stage := testutil.CreateStage(t, ts.DB.DB, round.ID, testutil.CreateChart(t, ts.DB.DB, "Song").ID)

	client := testutil.NewWSClient(t, fmt.Sprintf("%s&tourney=%d", ts.WebSocketURL(token), tourney.ID))

	sync := client.ExpectStateSync(5 * time.Second)
	assert.Equal(t, tourney.ID, sync.TourneyID)
	assert.Equal(t, 1, sync.Viewers)
	require.Len(t, sync.State.Stages, 1)
	require.Len(t, sync.State.PlayerRounds, 1)
	assert.Equal(t, "alice", sync.State.PlayerRounds[0].PlayerName)

	t.Run("score submissions are pushed", func(t *testing.T) {
		score, err := ts.Services.Score.SubmitScore(ctx, service.SubmitScoreInput{
			StageID:       stage.ID,
			PlayerRoundID: entry.ID,
			Value:         777,
		})
		require.NoError(t, err)

		change := client.ExpectChange(changefeed.TableScores, 5*time.Second)
		assert.Equal(t, tourney.ID, change.TourneyID)
		assert.Equal(t, changefeed.KindInsert, change.Kind)

		var row domain.Score
		require.NoError(t, changefeed.Event{Row: change.Row}.Decode(&row))
		assert.Equal(t, score.ID, row.ID)
		assert.Equal(t, 777.0, row.Value)
	})

	t.Run("resync reflects applied changes", func(t *testing.T) {
		client.SyncState()

		sync := client.ExpectStateSync(5 * time.Second)
		require.Len(t, sync.State.Scores, 1)
		require.Len(t, sync.State.Stages, 1)
		require.Len(t, sync.State.Stages[0].Scores, 1)
		assert.Equal(t, 777.0, sync.State.Stages[0].Scores[0].Value)
	})

	t.Run("registrations are pushed", func(t *testing.T) {
		resp := testutil.Do(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/rounds/%d/players", round.ID)), map[string]uint{"player_id": players[1].ID}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		change := client.ExpectChange(changefeed.TablePlayerRounds, 5*time.Second)
		var row domain.PlayerRound
		require.NoError(t, changefeed.Event{Row: change.Row}.Decode(&row))
		assert.Equal(t, players[1].ID, row.PlayerID)
	})

	t.Run("players added after opening are named", func(t *testing.T) {
		late, err := ts.Services.Tourney.AddPlayer(ctx, tourney.ID, service.AddPlayerInput{Name: "carol"})
		require.NoError(t, err)
		client.ExpectChange(changefeed.TablePlayers, 5*time.Second)

		_, err = ts.Services.Tourney.RegisterPlayer(ctx, round.ID, late.ID)
		require.NoError(t, err)
		client.ExpectChange(changefeed.TablePlayerRounds, 5*time.Second)

		client.SyncState()
		sync := client.ExpectStateSync(5 * time.Second)
		names := make(map[uint]string)
		for _, e := range sync.State.PlayerRounds {
			names[e.PlayerID] = e.PlayerName
		}
		assert.Equal(t, "carol", names[late.ID])
	})

	t.Run("other tourneys stay quiet", func(t *testing.T) {
		client.DrainMessages()

		other := testutil.NewTourneyBuilder().Build(t, ts.DB.DB)
		otherRound := testutil.NewRoundBuilder(other.ID).Build(t, ts.DB.DB)
		testutil.CreateStage(t, ts.DB.DB, otherRound.ID)

		client.ExpectNoMessage(300 * time.Millisecond)
	})

	t.Run("leave stops changes", func(t *testing.T) {
		client.Leave()
		time.Sleep(100 * time.Millisecond)

		_, err := ts.Services.Stage.CreateStage(ctx, round.ID, nil)
		require.NoError(t, err)

		client.ExpectNoMessage(300 * time.Millisecond)
	})
}

func TestWebSocketHandler_Auth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{name: "missing token", query: "", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", query: "?token=bogus", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.APIURL("/ws" + tt.query))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("unknown tourney", func(t *testing.T) {
		_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
		client := testutil.NewWSClient(t, ts.WebSocketURL(token)+"&tourney=9999")

		payload := client.ExpectError(5 * time.Second)
		assert.Equal(t, "TOURNEY_NOT_FOUND", payload.Code)
	})
}

func TestWebSocketHandler_SwitchTourney(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	first := testutil.NewTourneyBuilder().Build(t, ts.DB.DB)
	firstRound := testutil.NewRoundBuilder(first.ID).Build(t, ts.DB.DB)
	second := testutil.NewTourneyBuilder().Build(t, ts.DB.DB)
	secondRound := testutil.NewRoundBuilder(second.ID).Build(t, ts.DB.DB)

	client := testutil.NewWSClient(t, ts.WebSocketURL(token))

	client.SyncState()
	assert.Equal(t, "NOT_JOINED", client.ExpectError(5*time.Second).Code)

	client.JoinTourney(first.ID)
	assert.Equal(t, first.ID, client.ExpectStateSync(5*time.Second).TourneyID)

	client.JoinTourney(second.ID)
	sync := client.ExpectStateSync(5 * time.Second)
	assert.Equal(t, second.ID, sync.TourneyID)
	assert.Equal(t, 1, sync.Viewers)

	testutil.CreateStage(t, ts.DB.DB, firstRound.ID)
	client.ExpectNoMessage(300 * time.Millisecond)

	testutil.CreateStage(t, ts.DB.DB, secondRound.ID)
	change := client.ExpectChange(changefeed.TableStages, 5*time.Second)
	assert.Equal(t, second.ID, change.TourneyID)
}
