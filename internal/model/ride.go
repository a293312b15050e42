package model

type Ride struct {
	ID               int64   `json:"ride_id"`
	DriverID         int64   `json:"driver_id,omitempty"`
	DriverName       string  `json:"driver_name,omitempty"`
	StartingLocation Place   `json:"starting_location"`
	DropoffLocation  Place   `json:"dropoff_location"`
	RequestTime      string  `json:"request_time,omitempty"`
	PassengerCount   int     `json:"passenger_count,omitempty"`
	Fare             float64 `json:"fare,omitempty"`
	Status           string  `json:"status,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
}

type RidePage struct {
	Rides      []Ride `json:"rides"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// RideSearch holds the query for GET /rides. Zero fields are omitted.
type RideSearch struct {
	StartingLocation string
	DropoffLocation  string
	RequestTime      string
	Seats            int
	Page             int
	Size             int
}

// CreateRide is the body of POST /rides. Every field except Fare must be
// present before the request leaves the client.
type CreateRide struct {
	DriverID         string  `json:"driverID" validate:"required"`
	StartingLocation Place   `json:"startingLocation" validate:"required"`
	DropoffLocation  Place   `json:"dropoffLocation" validate:"required"`
	RequestTime      string  `json:"requestTime" validate:"required"`
	PassengerCount   string  `json:"Passenger_count" validate:"required"`
	Fare             float64 `json:"fare,omitempty" validate:"gte=0"`
}

type RideRequest struct {
	ID          int64  `json:"request_id,omitempty"`
	RideID      int64  `json:"ride_id" validate:"required"`
	PassengerID int64  `json:"passenger_id,omitempty"`
	Seats       int    `json:"seats,omitempty"`
	Status      string `json:"status,omitempty"`
}

type RideRequestDecision struct {
	RequestID int64 `json:"request_id" validate:"required"`
}
