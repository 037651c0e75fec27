package domain

import "time"

// PriceSample is one observation from the reference price stream.
type PriceSample struct {
	Price     float64
	Timestamp time.Time
}
