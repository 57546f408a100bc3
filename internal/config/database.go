package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"school_fleet/internal/models"
)

var (
	// DB is the globally accessible database handle
	DB *gorm.DB
)

// InitDB initializes the database connection using environment variables,
// applies the PostGIS extension, and migrates the fleet schema.
// TranslateError is on so unique-constraint violations surface as
// gorm.ErrDuplicatedKey regardless of the underlying driver.
func InitDB() {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "password")
	dbname := getEnv("DB_NAME", "school_fleet")
	sslmode := getEnv("DB_SSLMODE", "disable")
	timezone := getEnv("DB_TIMEZONE", "UTC")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, user, password, dbname, port, sslmode, timezone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	db.Exec("CREATE EXTENSION IF NOT EXISTS postgis;")

	err = db.AutoMigrate(
		&models.Vehicle{},
		&models.Route{},
		&models.Stop{},
		&models.RouteAssignment{},
		&models.LocationSample{},
		&models.Student{},
		&models.Subscription{},
		&models.RidershipEvent{},
		&models.Incident{},
		&models.ShiftLog{},
		&models.Driver{},
	)
	if err != nil {
		log.Fatalf("auto-migration failed: %v", err)
	}

	// Partial unique indexes; gorm tags cannot express them. One active
	// assignment per vehicle, and one open shift per driver-vehicle-route
	// key per day — completed rows stay out of the constraint so the same
	// key can run again later that day.
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_one_active
		ON route_assignments (vehicle_id) WHERE status = 'active' AND deleted_at IS NULL;`)
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_shift_one_in_progress
		ON shift_logs (driver_id, vehicle_id, route_id, shift_date)
		WHERE status = 'in_progress' AND deleted_at IS NULL;`)

	DB = db
}

// GetDB returns the initialized DB handle
func GetDB() *gorm.DB {
	return DB
}
