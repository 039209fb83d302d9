package notify

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receives(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "channel closed instead of signalling")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func closes(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel to close")
		}
	}
}

func TestSignal_Coalesces(t *testing.T) {
	sig := NewSignal()
	for i := 0; i < 10; i++ {
		sig.Fire()
	}

	receives(t, sig.C())
	select {
	case <-sig.C():
		t.Fatal("burst should collapse into a single pending signal")
	default:
	}
}

func TestSignal_FireAfterCloseIsNoop(t *testing.T) {
	sig := NewSignal()
	sig.Close()
	sig.Close()

	assert.NotPanics(t, sig.Fire)
	_, ok := <-sig.C()
	assert.False(t, ok)
}

func TestPostgresNotifier_Run(t *testing.T) {
	n := NewPostgresNotifier("", "", zap.NewNop())
	assert.Equal(t, "postgres:sensor_changes", n.Name())

	events := make(chan *pq.Notification)
	sig := NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.run(ctx, events, func() error { return nil }, sig)
		close(done)
	}()

	events <- &pq.Notification{Channel: "sensor_changes", Extra: "INSERT"}
	receives(t, sig.C())

	// reconnect marker
	events <- nil
	receives(t, sig.C())

	cancel()
	<-done
	closes(t, sig.C())
}

func TestInstallTrigger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`PERFORM pg_notify('sensor_changes', TG_OP)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InstallTrigger(context.Background(), db, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallTrigger_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE OR REPLACE FUNCTION`).WillReturnError(errors.New("permission denied"))

	err = InstallTrigger(context.Background(), db, "custom")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMQTTClient struct {
	mqtt.Client
	subscribeErr error
	handler      mqtt.MessageHandler
	published    [][]byte
	unsubscribed chan string
}

func (c *fakeMQTTClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	c.handler = cb
	return &fakeToken{err: c.subscribeErr}
}

func (c *fakeMQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	for _, topic := range topics {
		c.unsubscribed <- topic
	}
	return &fakeToken{}
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, payload.([]byte))
	return &fakeToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestMQTTNotifier_Subscribe(t *testing.T) {
	client := &fakeMQTTClient{unsubscribed: make(chan string, 1)}
	n := newMQTTNotifier(client, "", zap.NewNop())
	assert.Equal(t, "mqtt:"+DefaultMQTTTopic, n.Name())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := n.Subscribe(ctx)
	require.NoError(t, err)
	require.NotNil(t, client.handler)

	client.handler(client, &fakeMessage{topic: DefaultMQTTTopic, payload: []byte(`{"id": 9}`)})
	client.handler(client, &fakeMessage{topic: DefaultMQTTTopic})
	receives(t, ch)

	cancel()
	assert.Equal(t, DefaultMQTTTopic, <-client.unsubscribed)
	closes(t, ch)
}

func TestMQTTNotifier_SubscribeError(t *testing.T) {
	client := &fakeMQTTClient{subscribeErr: errors.New("not authorized")}
	n := newMQTTNotifier(client, "site/a", zap.NewNop())

	_, err := n.Subscribe(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "site/a")
}

func TestMQTTNotifier_Announce(t *testing.T) {
	client := &fakeMQTTClient{}
	n := newMQTTNotifier(client, "", zap.NewNop())

	require.NoError(t, n.Announce(context.Background()))
	assert.Len(t, client.published, 1)
}

func TestRedisNotifier_SubscribeAndAnnounce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	n := NewRedisNotifier(client, "", zap.NewNop())
	assert.Equal(t, "redis:"+DefaultRedisChannel, n.Name())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := n.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Announce(context.Background()))
	receives(t, ch)

	mr.Publish(DefaultRedisChannel, "external")
	receives(t, ch)

	cancel()
	closes(t, ch)
}
