package models

import (
	"time"

	"github.com/tobjohnbx/demo-mobile-charging/internal/pricing"
)

// CustomerInfo identifies the billing party behind an RFID tag.
type CustomerInfo struct {
	ContractID    int64  `json:"contractId"`
	ContractIdent string `json:"contractIdent"`
	DebtorIdent   string `json:"debtorIdent"`
}

// ChargingSession is the interval between a credential's start and stop
// scan during which power is permitted. Plan options are attached at start
// and immutable for the session's lifetime.
type ChargingSession struct {
	TagID       string               `json:"tagId"`
	Customer    CustomerInfo         `json:"customer"`
	StartTime   time.Time            `json:"startTime"`
	EndTime     time.Time            `json:"endTime,omitempty"`
	PlanOptions []pricing.PlanOption `json:"-"`
}

// Duration returns the session length, using now for a still-open session.
func (s *ChargingSession) Duration(now time.Time) time.Duration {
	end := s.EndTime
	if end.IsZero() {
		end = now
	}
	return end.Sub(s.StartTime)
}

// UsageRecord is what gets reported to the billing backend when a session
// (or a side purchase) completes.
type UsageRecord struct {
	TagID        string
	Customer     CustomerInfo
	Start        time.Time
	End          time.Time
	ProductIdent string  // empty means the station's charging product
	Quantity     float64 // 0 means derive seconds from Start/End
	QuantityType string  // SECOND unless overridden (PIECE for purchases)
}
