// Driver location simulator: publishes jittered positions for a set of
// driver ids over MQTT, exercising the same ingest path production drivers
// use.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Cities for realistic positions
var cities = []Location{
	{Lat: 51.5074, Lon: -0.1278},  // London
	{Lat: 40.7128, Lon: -74.0060}, // New York
	{Lat: 40.4168, Lon: -3.7038},  // Madrid
	{Lat: 48.8566, Lon: 2.3522},   // Paris
	{Lat: 41.0082, Lon: 28.9784},  // Istanbul
	{Lat: 52.5200, Lon: 13.4050},  // Berlin
	{Lat: 35.6762, Lon: 139.6503}, // Tokyo
	{Lat: 1.3521, Lon: 103.8198},  // Singapore
	{Lat: 43.6532, Lon: -79.3832}, // Toronto
	{Lat: 25.2048, Lon: 55.2708},  // Dubai
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomLocation() Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500)
}

// step moves a position a small random distance so consecutive publishes
// look like a moving car rather than teleportation.
func step(pos Location) Location {
	return jitterLocation(pos, 50)
}

func locationTopic(driverID int64) string {
	return fmt.Sprintf("fleet/drivers/%d/location", driverID)
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	broker := getenv("MQTT_BROKER", "tcp://mqtt:1883")
	driverCount := getenvInt("SIM_DRIVERS", 5)
	intervalSec := getenvInt("SIM_INTERVAL_SECONDS", 5)
	firstDriverID := getenvInt("SIM_FIRST_DRIVER_ID", 1)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-dispatch-simulator").
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.WithFields(log.Fields{
		"broker":  broker,
		"drivers": driverCount,
	}).Info("simulator connected")

	positions := make(map[int64]Location, driverCount)
	for i := 0; i < driverCount; i++ {
		positions[int64(firstDriverID+i)] = randomLocation()
	}

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for driverID, pos := range positions {
			next := step(pos)
			positions[driverID] = next

			payload, err := json.Marshal(next)
			if err != nil {
				log.WithError(err).Error("failed to marshal location")
				continue
			}

			token := client.Publish(locationTopic(driverID), 0, false, payload)
			token.Wait()
			if token.Error() != nil {
				log.WithError(token.Error()).WithField("driver_id", driverID).Warn("publish failed")
				continue
			}

			log.WithFields(log.Fields{
				"driver_id": driverID,
				"lat":       next.Lat,
				"lon":       next.Lon,
			}).Debug("published location")
		}
	}
}
