package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes events on "<prefix>.<table>" and subscribes to
// "<prefix>.>".
type NATSBus struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

func ConnectNATS(url, prefix string, logger *slog.Logger) (*NATSBus, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("GAUNTLET_CHANGEFEED"),
		nats.PingInterval(5*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("changefeed disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("changefeed reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBus{nc: nc, prefix: prefix, logger: logger}, nil
}

func (b *NATSBus) subject(table string) string {
	return b.prefix + "." + table
}

func (b *NATSBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject(ev.Table), data)
}

func (b *NATSBus) Subscribe(handler func(Event)) (func(), error) {
	sub, err := b.nc.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn("changefeed: dropping malformed event",
				slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, err
	}
	// Round-trip so the server holds the subscription before we return.
	if err := b.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn("changefeed: unsubscribe failed", slog.Any("error", err))
		}
	}, nil
}

func (b *NATSBus) Close() error {
	return b.nc.Drain()
}
