package repository

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// MQTTStatusConfig configures the broker connection.
type MQTTStatusConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	QoS       byte
}

// MQTTStatusRepository publishes the report as a retained message so new
// subscribers receive the current status immediately.
type MQTTStatusRepository struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTStatusRepository connects to the broker.
func NewMQTTStatusRepository(cfg MQTTStatusConfig) (*MQTTStatusRepository, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("connect mqtt broker %s: timeout", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.BrokerURL, err)
	}
	return NewMQTTStatusRepositoryWithClient(client, cfg.Topic, cfg.QoS), nil
}

// NewMQTTStatusRepositoryWithClient wraps an already connected client.
func NewMQTTStatusRepositoryWithClient(client mqtt.Client, topic string, qos byte) *MQTTStatusRepository {
	return &MQTTStatusRepository{client: client, topic: topic, qos: qos}
}

// Name identifies the publisher in logs and metrics.
func (r *MQTTStatusRepository) Name() string { return "mqtt" }

// Publish sends the payload and waits for the broker acknowledgement or ctx.
func (r *MQTTStatusRepository) Publish(ctx context.Context, _ models.StatusReport, payload []byte) error {
	token := r.client.Publish(r.topic, r.qos, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish mqtt %s: %w", r.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (r *MQTTStatusRepository) Close() error {
	r.client.Disconnect(250)
	return nil
}
