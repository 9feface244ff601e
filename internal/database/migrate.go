package database

import (
	"fmt"
	"log"

	"agrichain/internal/models"
)

func Migrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.CropBatch{},
		&models.Reservation{},
		&models.Order{},
		&models.Shipment{},
		&models.Payment{},
		&models.TraceabilityRecord{},
		&models.Dispute{},
	)

	if err != nil {
		log.Printf("Error migrating database: %v", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}
