// Package ingest receives driver positions over MQTT and applies them as
// coordinate-only partial updates, so the coordinate timestamp rule is the
// same whether a position arrives over HTTP or the broker.
package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/fleetops/fleet-dispatch/internal/models"
)

// LocationTopic is the subscription filter; the middle segment is the
// driver id, e.g. fleet/drivers/42/location.
const LocationTopic = "fleet/drivers/+/location"

// DriverPatcher applies partial driver updates.
type DriverPatcher interface {
	UpdatePartially(ctx context.Context, id int64, patch models.DriverPatch) error
}

// Subscriber consumes driver location messages from the broker.
type Subscriber struct {
	drivers DriverPatcher
	timeout time.Duration
}

// NewSubscriber creates a location subscriber.
func NewSubscriber(drivers DriverPatcher) *Subscriber {
	return &Subscriber{drivers: drivers, timeout: 5 * time.Second}
}

// Connect dials the broker and subscribes to the location topic.
func (s *Subscriber) Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Subscribe(LocationTopic, 0, s.Handle); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}

	log.WithField("topic", LocationTopic).Info("subscribed to driver locations")
	return client, nil
}

// Handle processes one location message. Malformed topics or payloads are
// logged and dropped; a position for an unknown driver is not an error worth
// more than a warning.
func (s *Subscriber) Handle(_ mqtt.Client, msg mqtt.Message) {
	driverID, err := DriverIDFromTopic(msg.Topic())
	if err != nil {
		log.WithField("topic", msg.Topic()).Warn("dropped location message: bad topic")
		return
	}

	var loc models.Location
	if err := json.Unmarshal(msg.Payload(), &loc); err != nil {
		log.WithField("topic", msg.Topic()).Warn("dropped location message: bad payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	patch := models.DriverPatch{Coordinate: &loc}
	if err := s.drivers.UpdatePartially(ctx, driverID, patch); err != nil {
		log.WithError(err).WithField("driver_id", driverID).Warn("failed to apply driver location")
		return
	}

	log.WithFields(log.Fields{"driver_id": driverID, "lat": loc.Lat, "lon": loc.Lon}).Debug("driver location updated")
}

// DriverIDFromTopic extracts the driver id from fleet/drivers/{id}/location.
func DriverIDFromTopic(topic string) (int64, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(parts[2], 10, 64)
}
