package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultPostgresChannel is the LISTEN channel the sensor trigger notifies on
const DefaultPostgresChannel = "sensor_changes"

const pingInterval = 90 * time.Second

// PostgresNotifier listens for NOTIFY events raised by the sensor table trigger
type PostgresNotifier struct {
	dsn     string
	channel string
	logger  *zap.Logger
}

// NewPostgresNotifier creates a LISTEN/NOTIFY notifier
func NewPostgresNotifier(dsn, channel string, logger *zap.Logger) *PostgresNotifier {
	if channel == "" {
		channel = DefaultPostgresChannel
	}
	return &PostgresNotifier{dsn: dsn, channel: channel, logger: logger}
}

// Name identifies the notifier in logs
func (n *PostgresNotifier) Name() string {
	return "postgres:" + n.channel
}

// Subscribe starts listening on the configured channel
func (n *PostgresNotifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	listener := pq.NewListener(n.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			n.logger.Warn("postgres listener connection problem", zap.String("channel", n.channel), zap.Error(err))
		case pq.ListenerEventReconnected:
			n.logger.Info("postgres listener reconnected", zap.String("channel", n.channel))
		}
	})
	if err := listener.Listen(n.channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", n.channel, err)
	}
	n.logger.Info("listening for sensor changes", zap.String("channel", n.channel))

	sig := NewSignal()
	go func() {
		defer listener.Close()
		n.run(ctx, listener.Notify, listener.Ping, sig)
	}()
	return sig.C(), nil
}

// run forwards notifications until ctx is done. A nil notification follows a
// reconnect, when events may have been missed, so it fires too.
func (n *PostgresNotifier) run(ctx context.Context, events <-chan *pq.Notification, ping func() error, sig *Signal) {
	defer sig.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev != nil {
				n.logger.Debug("sensor change notification", zap.String("channel", ev.Channel), zap.String("op", ev.Extra))
			}
			sig.Fire()
		case <-ticker.C:
			if err := ping(); err != nil {
				n.logger.Warn("postgres listener ping failed", zap.Error(err))
			}
		}
	}
}

// InstallTrigger creates the trigger that raises NOTIFY on every change to the sensor table
func InstallTrigger(ctx context.Context, db *sql.DB, channel string) error {
	if channel == "" {
		channel = DefaultPostgresChannel
	}
	stmt := fmt.Sprintf(`
	CREATE OR REPLACE FUNCTION notify_sensor_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify(%s, TG_OP);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql;
	DROP TRIGGER IF EXISTS sensor_change_notify ON sensor;
	CREATE TRIGGER sensor_change_notify
		AFTER INSERT OR UPDATE OR DELETE ON sensor
		FOR EACH STATEMENT EXECUTE FUNCTION notify_sensor_change();`, pq.QuoteLiteral(channel))

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to install sensor trigger: %w", err)
	}
	return nil
}
