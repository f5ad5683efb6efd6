// Package publish sends anomalous live classifications to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// Publisher delivers one classification to subscribers.
type Publisher interface {
	Publish(ctx context.Context, c model.LiveClassification) error
	Close()
}

// Config holds MQTT connection settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// Nop discards every classification. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, model.LiveClassification) error { return nil }
func (Nop) Close()                                               {}

// MQTTPublisher posts classifications as JSON to <topic>/<city> at QoS 1.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// New connects to the broker in cfg. An empty broker yields Nop.
func New(cfg Config) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		zap.L().Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, eris.Wrapf(token.Error(), "publish: connect %s", cfg.Broker)
	}
	zap.L().Info("mqtt connected", zap.String("broker", cfg.Broker))

	return NewMQTTPublisher(client, cfg.Topic, cfg.Timeout), nil
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client mqtt.Client, topic string, timeout time.Duration) *MQTTPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client:  client,
		topic:   strings.TrimRight(topic, "/"),
		timeout: timeout,
	}
}

// Topic returns the topic a classification for city is published to.
func (p *MQTTPublisher) Topic(city string) string {
	return p.topic + "/" + topicSegment(city)
}

func (p *MQTTPublisher) Publish(ctx context.Context, c model.LiveClassification) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "publish: marshal classification")
	}

	topic := p.Topic(c.City)
	token := p.client.Publish(topic, 1, false, payload)

	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "publish: "+topic)
	case <-token.Done():
	case <-time.After(p.timeout):
		return eris.Errorf("publish: %s timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return eris.Wrapf(err, "publish: %s", topic)
	}

	zap.L().Debug("published anomaly", zap.String("topic", topic), zap.String("city", c.City))
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// topicSegment makes a city name safe to use as one MQTT topic level.
func topicSegment(city string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	s := r.Replace(strings.TrimSpace(city))
	if s == "" {
		return "unknown"
	}
	return s
}
