package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrClosed = errors.New("changefeed: bus closed")

type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Tables carried by the feed.
const (
	TablePlayers      = "players"
	TableRounds       = "rounds"
	TableStages       = "stages"
	TablePlayerRounds = "player_rounds"
	TableScores       = "scores"
	TableStageCharts  = "stage_charts"
)

// DefaultTables are the tables watched when RegisterCallbacks gets none.
var DefaultTables = []string{TablePlayers, TableRounds, TableStages, TablePlayerRounds, TableScores, TableStageCharts}

// Event is one row change. Row holds the raw row keyed by column name and
// never includes joined relations.
type Event struct {
	Table string          `json:"table"`
	Kind  Kind            `json:"kind"`
	Row   json.RawMessage `json:"row"`
	At    time.Time       `json:"at"`
}

func NewEvent(table string, kind Kind, row interface{}) (Event, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return Event{}, err
	}
	return Event{Table: table, Kind: kind, Row: data, At: time.Now()}, nil
}

// Decode unmarshals the row into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Row, v)
}

// Fields returns the set of top-level keys present in the row.
func (e Event) Fields() (map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Row, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]bool, len(raw))
	for k := range raw {
		fields[k] = true
	}
	return fields, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber delivers every published event to handler until the returned
// cancel func is called. Handlers must not block.
type Subscriber interface {
	Subscribe(handler func(Event)) (cancel func(), err error)
}

// Bus is a transport that both publishes and delivers events.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}
