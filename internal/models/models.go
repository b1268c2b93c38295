package models

import "time"

// UserRecord represents a registered chat known to the bot.
// IDs are kept as strings to avoid numeric-precision loss when records
// travel through JSON.
type UserRecord struct {
	ID           string    `json:"id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// DeliveryReport summarizes one broadcast pass over the registry.
type DeliveryReport struct {
	ID      string
	Sent    int
	Failed  int
	Removed []string
}
