package relay

import (
	"time"

	"github.com/samber/lo"

	"github.com/Tyrowin/gochat-relay/internal/message"
)

// Delivery is the outcome of sending one broadcast to one connection.
// Err is nil when the payload was handed to the connection.
type Delivery struct {
	Username string
	Err      error
}

// Report collects the outcome of one broadcast.
type Report struct {
	Type       message.Type
	Deliveries []Delivery
	Duration   time.Duration
}

// Delivered returns the number of successful deliveries.
func (r Report) Delivered() int {
	return len(r.Deliveries) - r.Failed()
}

// Failed returns the number of failed deliveries.
func (r Report) Failed() int {
	return lo.CountBy(r.Deliveries, func(d Delivery) bool { return d.Err != nil })
}

// Failures returns the failed deliveries in snapshot order.
func (r Report) Failures() []Delivery {
	return lo.Filter(r.Deliveries, func(d Delivery, _ int) bool { return d.Err != nil })
}
