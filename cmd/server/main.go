package main

import (
	"log"
	"net/http"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/config"
	"school_fleet/internal/controllers"
	"school_fleet/internal/events"
	"school_fleet/internal/logger"
	"school_fleet/internal/metrics"
	"school_fleet/internal/middleware"
	"school_fleet/internal/repository"
	"school_fleet/internal/routes"
	"school_fleet/internal/services"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Connect to the database
	config.InitDB()
	store := repository.NewStore(config.DB)

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		collector.Serve(cfg.MetricsAddr)
	}

	// Outbound events ride NATS; losing the broker degrades notifications
	// but never blocks operations, so a failed connect only logs.
	var publisher events.Publisher
	if nats, err := events.NewNATSPublisher(cfg.NATSURL, collector); err != nil {
		logrus.WithError(err).Warn("nats unavailable, outbound events disabled")
	} else {
		publisher = nats
		defer nats.Close()
	}
	notifier := events.NewNotifier(publisher, cfg.NotifyAttempts, cfg.NotifyBackoff, collector)
	defer notifier.Flush()

	hub := events.NewMonitorHub()

	ingestor := services.NewIngestor(services.IngestorParams{
		Locations:           store.Locations,
		Routes:              store.Routes,
		Assignments:         store.Assignments,
		Vehicles:            store.Vehicles,
		Notifier:            notifier,
		Hub:                 hub,
		Metrics:             collector,
		ArrivalRadiusMeters: cfg.ArrivalRadiusMeters,
		EtaFloorKmh:         cfg.EtaFloorKmh,
		StaleAfter:          cfg.StaleAfter,
	})
	optimizer := services.NewRouteOptimizer(store.Routes, cfg.AvgSpeedKmh)
	tracker := services.NewRidershipTracker(store.Ridership, store.Subscriptions, store.Vehicles, store.Locations, notifier, collector)
	coordinator := services.NewIncidentCoordinator(store.Incidents, notifier, collector, cfg.EmergencyResponderID)
	shifts := services.NewShiftManager(store.Shifts, store.Assignments, store.Vehicles, store.Routes, collector)

	r := routes.SetupRouter(routes.Controllers{
		Routes:    controllers.NewRouteController(store.Routes, optimizer, cfg.AvgSpeedKmh, cfg.ArrivalRadiusMeters),
		Vehicles:  controllers.NewVehicleController(store.Vehicles, store.Assignments),
		Locations: controllers.NewLocationController(ingestor),
		Ridership: controllers.NewRidershipController(tracker),
		Incidents: controllers.NewIncidentController(coordinator),
		Shifts:    controllers.NewShiftController(shifts),
		WS:        controllers.NewWSController(ingestor, hub),
	})

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Printf("🚀 Server running at %s", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, handler))
}
