package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultMQTTTopic is the topic devices publish to after writing a reading
const DefaultMQTTTopic = "water/sensor/changed"

// MQTTConfig holds broker connection settings
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// MQTTNotifier signals on every message received on the configured topic
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewMQTTNotifier connects to the broker
func NewMQTTNotifier(cfg MQTTConfig, logger *zap.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Info("connected to mqtt broker", zap.String("broker", cfg.Broker))

	return newMQTTNotifier(client, cfg.Topic, logger), nil
}

func newMQTTNotifier(client mqtt.Client, topic string, logger *zap.Logger) *MQTTNotifier {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	return &MQTTNotifier{client: client, topic: topic, qos: 1, logger: logger}
}

// Name identifies the notifier in logs
func (n *MQTTNotifier) Name() string {
	return "mqtt:" + n.topic
}

// Subscribe subscribes to the change topic until ctx is cancelled
func (n *MQTTNotifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	sig := NewSignal()
	if token := n.client.Subscribe(n.topic, n.qos, n.handler(sig)); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", n.topic, token.Error())
	}

	go func() {
		<-ctx.Done()
		if token := n.client.Unsubscribe(n.topic); token.WaitTimeout(time.Second) && token.Error() != nil {
			n.logger.Warn("mqtt unsubscribe failed", zap.String("topic", n.topic), zap.Error(token.Error()))
		}
		sig.Close()
	}()
	return sig.C(), nil
}

func (n *MQTTNotifier) handler(sig *Signal) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		n.logger.Debug("sensor change message", zap.String("topic", msg.Topic()), zap.Int("bytes", len(msg.Payload())))
		sig.Fire()
	}
}

// Announce publishes a change event on the topic
func (n *MQTTNotifier) Announce(ctx context.Context) error {
	token := n.client.Publish(n.topic, n.qos, false, []byte(time.Now().UTC().Format(time.RFC3339)))
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", n.topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
