package orchestrator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
)

// eventChannel is the Postgres NOTIFY channel task events travel on,
// bridging worker processes to the API server's SSE hub.
const eventChannel = "task_events"

type wireEvent struct {
	UserSub string `json:"user_sub"`
	Event   Event  `json:"event"`
}

// PGNotifier publishes task events through pg_notify. Workers run in
// their own processes, so completion events reach SSE subscribers by
// riding the database connection both sides already hold.
type PGNotifier struct {
	pool   kpool.Pool
	logger *log.Logger
}

var _ Publisher = &PGNotifier{}

func NewPGNotifier(pool kpool.Pool, logger *log.Logger) *PGNotifier {
	return &PGNotifier{pool: pool, logger: logger}
}

// Publish sends the event. Delivery is best effort: the UI refetches
// on reconnect, so a lost notification costs a refresh, not state.
func (n *PGNotifier) Publish(userSub string, event Event) {
	payload, err := json.Marshal(wireEvent{UserSub: userSub, Event: event})
	if err != nil {
		n.logger.Printf("event for %s not encodable: %s", userSub, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		n.logger.Printf("event for %s dropped, no connection: %s", userSub, err)
		return
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "select pg_notify($1, $2)", eventChannel, string(payload)); err != nil {
		n.logger.Printf("event for %s dropped: %s", userSub, err)
	}
}

// ListenEvents holds a dedicated LISTEN connection and forwards each
// notification into the hub. It returns when the context is cancelled
// or the connection breaks; the caller decides whether to reconnect.
func ListenEvents(ctx context.Context, dburi string, hub *Hub, logger *log.Logger) error {
	conn, err := pgx.Connect(ctx, dburi)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "listen "+eventChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		we := wireEvent{}
		if err := json.Unmarshal([]byte(notification.Payload), &we); err != nil {
			logger.Printf("dropping undecodable event notification: %s", err)
			continue
		}
		hub.Publish(we.UserSub, we.Event)
	}
}
