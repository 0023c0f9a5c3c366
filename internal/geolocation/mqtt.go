package geolocation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"tripmeter/internal/domain"
)

// TopicPattern is the MQTT topic driver devices publish positions to; the
// wildcard level is the trip id.
const TopicPattern = "tripmeter/trips/+/position"

type positionMessage struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	TimestampMs int64    `json:"timestamp_ms"`
	AccuracyM   float64  `json:"accuracy_m"`
}

type publisher interface {
	Publish(tripID string, s Sample) error
}

// MQTTSubscriber feeds positions received over MQTT into a Hub.
type MQTTSubscriber struct {
	client mqtt.Client
	hub    publisher
	logger *slog.Logger
}

// NewMQTTSubscriber creates a subscriber; call Start to begin receiving.
func NewMQTTSubscriber(client mqtt.Client, hub publisher, logger *slog.Logger) *MQTTSubscriber {
	return &MQTTSubscriber{client: client, hub: hub, logger: logger}
}

// Start subscribes to TopicPattern with QoS 1.
func (s *MQTTSubscriber) Start() error {
	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

// Stop unsubscribes from TopicPattern.
func (s *MQTTSubscriber) Stop() error {
	token := s.client.Unsubscribe(TopicPattern)
	token.Wait()
	return token.Error()
}

func (s *MQTTSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	tripID, err := tripIDFromTopic(msg.Topic())
	if err != nil {
		s.logger.Warn("mqtt position rejected", "topic", msg.Topic(), "error", err)
		return
	}

	sample, err := ParsePosition(msg.Payload())
	if err != nil {
		s.logger.Warn("mqtt position rejected", "trip_id", tripID, "error", err)
		return
	}

	if err := s.hub.Publish(tripID, sample); err != nil {
		s.logger.Warn("mqtt position rejected", "trip_id", tripID, "error", err)
	}
}

func tripIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "tripmeter" || parts[1] != "trips" || parts[3] != "position" || parts[2] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[2], nil
}

// ParsePosition decodes a {lat, lng, timestamp_ms, accuracy_m} JSON message.
func ParsePosition(payload []byte) (Sample, error) {
	var raw positionMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Sample{}, fmt.Errorf("%w: invalid position message: %v", domain.ErrInvalidArgument, err)
	}
	if raw.Lat == nil || raw.Lng == nil {
		return Sample{}, fmt.Errorf("%w: lat and lng are required", domain.ErrInvalidArgument)
	}
	return Sample{
		TimedPoint: domain.TimedPoint{
			GeoPoint:    domain.GeoPoint{Lat: *raw.Lat, Lng: *raw.Lng},
			TimestampMs: raw.TimestampMs,
		},
		AccuracyM: raw.AccuracyM,
	}, nil
}
