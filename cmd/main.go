package main

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetops/fleet-dispatch/internal/assignment"
	"github.com/fleetops/fleet-dispatch/internal/auth"
	"github.com/fleetops/fleet-dispatch/internal/config"
	"github.com/fleetops/fleet-dispatch/internal/db"
	"github.com/fleetops/fleet-dispatch/internal/handlers"
	"github.com/fleetops/fleet-dispatch/internal/ingest"
	"github.com/fleetops/fleet-dispatch/internal/locks"
	"github.com/fleetops/fleet-dispatch/internal/middleware"
	"github.com/fleetops/fleet-dispatch/internal/registry"
)

func main() {
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())
	log.Info("connected to MongoDB")

	database := client.Database(cfg.MongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		cancel()
		log.Fatalf("Failed to create indexes: %v", err)
	}
	cancel()

	cars := &db.MongoCarCollection{Collection: database.Collection("cars")}
	drivers := &db.MongoDriverCollection{Collection: database.Collection("drivers")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}
	seq := &db.Sequence{Collection: database.Collection("counters")}

	keyed := locks.NewKeyed()
	carRegistry := registry.NewCarRegistry(cars, drivers, seq, keyed)
	driverRegistry := registry.NewDriverRegistry(drivers, seq)
	engine := assignment.NewEngine(drivers, cars, keyed)

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	authMW := middleware.NewAuthMiddleware(authService)
	rateMW := middleware.NewRateLimitMiddleware()

	authHandler := handlers.NewAuthHandler(authService, users)
	carHandler := handlers.NewCarHandler(carRegistry)
	driverHandler := handlers.NewDriverHandler(driverRegistry, engine)

	subscriber := ingest.NewSubscriber(driverRegistry)
	mqttClient, err := subscriber.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		// the HTTP surface works without the broker; positions just won't flow
		log.WithError(err).Warn("MQTT broker unreachable, location ingest disabled")
	} else {
		defer mqttClient.Disconnect(250)
	}

	router := handlers.NewRouter(authHandler, carHandler, driverHandler, authMW, rateMW)

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
