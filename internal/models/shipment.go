package models

import (
	"time"

	"gorm.io/gorm"
)

type ShipmentStatus string

const (
	ShipmentCreated   ShipmentStatus = "CREATED"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentArrived   ShipmentStatus = "ARRIVED"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
)

// Shipment tracks the physical movement of an accepted order. 1:1 with its
// order; reaching the final waypoint (or an explicit delivery confirmation)
// drives the order to DELIVERED in the same transaction.
type Shipment struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrderID         uint           `gorm:"not null;uniqueIndex" json:"order_id"`
	CurrentLocation string         `gorm:"not null" json:"current_location"`
	TransportMode   string         `gorm:"type:varchar(30)" json:"transport_mode,omitempty"`
	CarrierName     string         `gorm:"type:varchar(100)" json:"carrier_name,omitempty"`
	TrackingNumber  string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"tracking_number"`
	Status          ShipmentStatus `gorm:"type:varchar(20);not null;default:'CREATED'" json:"status"`

	// IoT sensor data
	Temperature      *float64   `json:"temperature,omitempty"`
	Humidity         *float64   `json:"humidity,omitempty"`
	LastSensorUpdate *time.Time `json:"last_sensor_update,omitempty"`

	// Waypoint cursor for simulated movement
	WaypointIndex int `gorm:"not null;default:-1" json:"-"`

	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time     `json:"actual_delivery,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Order Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (Shipment) TableName() string {
	return "shipments"
}
