// internal/models/economics.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PricePoint struct {
	Price             decimal.Decimal `json:"price"`
	RoyaltyPercentage decimal.Decimal `json:"royalty_percentage"`
	EffectiveAt       time.Time       `json:"effective_at"`
	Reason            string          `json:"reason,omitempty"`
}

// EconomicsSnapshot is only ever extended: price changes append to PriceHistory
// and revenue counters only grow.
type EconomicsSnapshot struct {
	CurrentUnlockPrice       decimal.Decimal `json:"current_unlock_price"`
	CurrentRoyaltyPercentage decimal.Decimal `json:"current_royalty_percentage"`
	PriceHistory             []PricePoint    `json:"price_history"`
	TotalUnlockRevenue       decimal.Decimal `json:"total_unlock_revenue"`
	TotalRoyaltiesEarned     decimal.Decimal `json:"total_royalties_earned"`
	TotalRoyaltiesPaid       decimal.Decimal `json:"total_royalties_paid"`
	UnlockCount              int64           `json:"unlock_count"`
}

type RevenueSplit struct {
	Gross      decimal.Decimal `json:"gross"`
	Author     decimal.Decimal `json:"author_share"`
	Curator    decimal.Decimal `json:"curator_share"`
	Platform   decimal.Decimal `json:"platform_share"`
	HasCurator bool            `json:"has_curator"`
}

type RevenueProjection struct {
	Conservative decimal.Decimal `json:"conservative"`
	Expected     decimal.Decimal `json:"expected"`
	Optimistic   decimal.Decimal `json:"optimistic"`
}

// DerivativeEconomics is a planning estimate, not a financial guarantee.
type DerivativeEconomics struct {
	BaseRevenue        decimal.Decimal   `json:"base_revenue"`
	ParentRoyalty      decimal.Decimal   `json:"parent_royalty"`
	PlatformFee        decimal.Decimal   `json:"platform_fee"`
	NetRevenue         decimal.Decimal   `json:"net_revenue"`
	ProfitMargin       decimal.Decimal   `json:"profit_margin"`
	BreakEvenUnits     int64             `json:"break_even_units"`
	BreakEvenReachable bool              `json:"break_even_reachable"`
	Projection         RevenueProjection `json:"projection"`
}
