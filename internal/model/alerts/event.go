package alerts

import "time"

// Event is the wire form of a fired alert, published to the notifications
// topic and consumed by the notifier. Amounts are fixed-point strings.
type Event struct {
	OwnerID     int64     `json:"owner_id"`
	Category    string    `json:"category"`
	Spent       string    `json:"spent"`
	Threshold   string    `json:"threshold"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	FiredAt     time.Time `json:"fired_at"`
}
