package statssdk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cdr.dev/slog"
	"github.com/coder/retry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/coder/connstats"
)

// WatchConnector subscribes to a connector's live row feed. Every delivery
// is a complete, ordered snapshot of the stream so far, never a diff; the
// consumer re-runs the pipeline over each one.
//
// The channel closes when ctx is done. A dropped connection is redialed
// with backoff, and the server re-sends a fresh complete snapshot on
// reconnect, so the consumer never has to merge.
func (c *Client) WatchConnector(ctx context.Context, connector uuid.UUID) (<-chan []connstats.Row, error) {
	u, err := c.URL.Parse("/api/v0/connectors/" + connector.String() + "/watch")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	snapshots := make(chan []connstats.Row)
	go func() {
		defer close(snapshots)
		for r := retry.New(250*time.Millisecond, 10*time.Second); ; {
			err := c.watchOnce(ctx, u.String(), snapshots)
			if ctx.Err() != nil {
				return
			}
			c.Logger.Debug(ctx, "watch connection lost, redialing",
				slog.F("connector_id", connector),
				slog.Error(err),
			)
			if !r.Wait(ctx) {
				return
			}
		}
	}()
	return snapshots, nil
}

func (c *Client) watchOnce(ctx context.Context, wsURL string, snapshots chan<- []connstats.Row) error {
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var snap []connstats.Row
		if err := wsjson.Read(ctx, conn, &snap); err != nil {
			return err
		}
		select {
		case snapshots <- snap:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
