package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DispatchStatus string

const (
	DispatchDelivered DispatchStatus = "delivered"
	DispatchFailed    DispatchStatus = "failed"
	DispatchSkipped   DispatchStatus = "skipped" // operator chat not configured
)

// Order is a fully validated order awaiting or past confirmation
type Order struct {
	Number           string // assigned on confirmation
	UserID           int64
	DisplayName      string
	Material         string // catalog key
	Quantity         decimal.Decimal
	Unit             string // copied from the catalog at selection time
	Address          string
	Phone            string
	EstimatedPrice   decimal.Decimal // Quantity × unit price when quantity was accepted
	AIRecommendation string
	CreatedAt        time.Time
	ConfirmedAt      time.Time
}

// DispatchRecord is one journal row describing how an order relay went
type DispatchRecord struct {
	ID         string
	Order      Order
	Status     DispatchStatus
	Error      string
	RecordedAt time.Time
}
