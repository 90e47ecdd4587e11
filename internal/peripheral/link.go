package peripheral

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/device-core/internal/logger"
)

// Timeouts of broker operations.
const (
	connectTimeout       = 10 * time.Second
	publishTimeout       = 2 * time.Second
	connectRetryInterval = 5 * time.Second
	disconnectQuiesce    = 250
)

var (
	// ErrNotReady is returned when the broker link is down.
	ErrNotReady = errors.New("MQTT client not ready")
	// ErrPublishTimeout is returned when the broker did not take a publish in time.
	ErrPublishTimeout = errors.New("MQTT publish timed out")
)

// Publisher sends payloads to a broker.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
	Connected() bool
}

// Handler consumes a broker link.
type Handler interface {
	// Subscriptions lists the topic filters to subscribe after each connect.
	Subscriptions() []string
	// HandleMessage receives every inbound message.
	HandleMessage(ctx context.Context, topic, payload string)
	// OnConnect runs after each (re)connect and subscription.
	OnConnect(ctx context.Context, publisher Publisher)
}

// LinkConfig configures a broker link.
type LinkConfig struct {
	// Name labels log lines.
	Name string
	// BrokerURL is e.g. ws://host:8083/mqtt or tcp://host:1883.
	BrokerURL string
	// ClientID must be unique per broker.
	ClientID string
	// Username and Password authenticate when set.
	Username, Password string
}

// Link is a paho client bound to one Handler.
type Link struct {
	// client is the paho client.
	client mqtt.Client
	// handler receives messages.
	handler Handler
}

//nolint:gochecknoglobals // paho exposes its loggers as package variables.
var installLoggersOnce sync.Once

// Dial connects to the broker in the background; paho keeps retrying.
func Dial(ctx context.Context, cfg LinkConfig, handler Handler) *Link {
	ctx = logger.WithName(ctx, cfg.Name)

	installLoggersOnce.Do(func() {
		mqtt.ERROR = logger.NewPrinter(ctx, zapcore.ErrorLevel, "[mqtt] ")
		mqtt.CRITICAL = logger.NewPrinter(ctx, zapcore.ErrorLevel, "[mqtt] ")
		mqtt.WARN = logger.NewPrinter(ctx, zapcore.WarnLevel, "[mqtt] ")
	})

	l := &Link{handler: handler}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(mqtt.Client) { l.onConnect(ctx) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WarnKV(ctx, "broker connection lost", "error", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	l.client = mqtt.NewClient(opts)
	l.client.Connect()

	logger.InfoKV(ctx, "connecting to broker", "broker", cfg.BrokerURL)

	return l
}

// Publish implements Publisher with QoS 0.
func (l *Link) Publish(ctx context.Context, topic, payload string) error {
	if !l.Connected() {
		return ErrNotReady
	}

	token := l.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	logger.DebugKV(ctx, "published", "topic", topic, "payload", payload)

	return nil
}

// Connected implements Publisher.
func (l *Link) Connected() bool {
	return l.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (l *Link) Close() {
	l.client.Disconnect(disconnectQuiesce)
}

func (l *Link) onConnect(ctx context.Context) {
	logger.Info(ctx, "broker connected")

	for _, filter := range l.handler.Subscriptions() {
		token := l.client.Subscribe(filter, 0, func(_ mqtt.Client, m mqtt.Message) {
			l.handler.HandleMessage(ctx, m.Topic(), string(m.Payload()))
		})

		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			logger.ErrorKV(ctx, "failed to subscribe", "filter", filter, "error", token.Error())

			continue
		}

		logger.InfoKV(ctx, "subscribed", "filter", filter)
	}

	l.handler.OnConnect(ctx, l)
}
