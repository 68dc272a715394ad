// internal/services/economics_service.go
package services

import (
	"github.com/shopspring/decimal"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

const (
	// DefaultQualityScore is used when a creator does not declare one.
	DefaultQualityScore = 50
	// MoneyPrecision is the number of decimal places kept on split amounts.
	MoneyPrecision = 6
)

var (
	hundred = decimal.NewFromInt(100)

	// PlatformFeePercentage is taken from every unlock and derivative sale.
	PlatformFeePercentage  = decimal.NewFromInt(10)
	CuratorSharePercentage = decimal.NewFromInt(20)

	// NominalDerivativeCost is the fixed cost break-even is measured against.
	NominalDerivativeCost = decimal.NewFromInt(100)

	PercentEpsilon = decimal.New(1, -4)
	SplitEpsilon   = decimal.New(1, -MoneyPrecision)

	conservativeFactor = decimal.NewFromFloat(0.7)
	optimisticFactor   = decimal.NewFromFloat(1.5)
)

// EconomicsCalculator turns license terms and revenue figures into splits and
// planning projections.
type EconomicsCalculator struct{}

func NewEconomicsCalculator() *EconomicsCalculator {
	return &EconomicsCalculator{}
}

// Split divides an unlock payment. With a curator the split is 70/20/10
// (author/curator/platform); without one it is 90/10.
func (e *EconomicsCalculator) Split(gross decimal.Decimal, hasCurator bool) models.RevenueSplit {
	if gross.IsNegative() {
		utils.InvariantViolation("negative gross revenue %s", gross)
	}

	curatorPct := decimal.Zero
	if hasCurator {
		curatorPct = CuratorSharePercentage
	}
	authorPct := hundred.Sub(curatorPct).Sub(PlatformFeePercentage)
	assertPercentSum(authorPct, curatorPct, PlatformFeePercentage)

	platform := percentOf(gross, PlatformFeePercentage)
	curator := percentOf(gross, curatorPct)
	author := gross.Sub(platform).Sub(curator)

	split := models.RevenueSplit{
		Gross:      gross,
		Author:     author,
		Curator:    curator,
		Platform:   platform,
		HasCurator: hasCurator,
	}
	assertAmountSum(gross, split.Author, split.Curator, split.Platform)
	return split
}

// EstimateBaseRevenue is a rough planning heuristic for UI projections:
// quality score times a use multiplier times 10. It is not a forecast.
func (e *EconomicsCalculator) EstimateBaseRevenue(qualityScore int, use models.IntendedUse) decimal.Decimal {
	multiplier := decimal.NewFromInt(1)
	switch use {
	case models.IntendedUseCommercial:
		multiplier = decimal.NewFromInt(2)
	case models.IntendedUseEducational:
		multiplier = decimal.NewFromFloat(0.5)
	}
	return decimal.NewFromInt(int64(qualityScore)).Mul(multiplier).Mul(decimal.NewFromInt(10))
}

// ProjectDerivativeEconomics applies the inherited royalty and platform fee
// to a base revenue estimate.
func (e *EconomicsCalculator) ProjectDerivativeEconomics(base decimal.Decimal, implications models.EconomicImplications) models.DerivativeEconomics {
	if base.IsNegative() {
		utils.InvariantViolation("negative base revenue %s", base)
	}
	assertPercentSum(implications.ParentRoyaltyPercentage, implications.PlatformFee, implications.DerivativeRoyaltyShare)

	royalty := percentOf(base, implications.ParentRoyaltyPercentage)
	fee := percentOf(base, implications.PlatformFee)
	net := base.Sub(royalty).Sub(fee)
	assertAmountSum(base, royalty, fee, net)

	result := models.DerivativeEconomics{
		BaseRevenue:   base,
		ParentRoyalty: royalty,
		PlatformFee:   fee,
		NetRevenue:    net,
		ProfitMargin:  decimal.Zero,
		Projection: models.RevenueProjection{
			Conservative: net.Mul(conservativeFactor).Round(MoneyPrecision),
			Expected:     net,
			Optimistic:   net.Mul(optimisticFactor).Round(MoneyPrecision),
		},
	}
	if base.IsPositive() {
		result.ProfitMargin = net.Div(base).Mul(hundred).Round(2)
	}
	if net.IsPositive() {
		result.BreakEvenUnits = NominalDerivativeCost.Div(net).Ceil().IntPart()
		result.BreakEvenReachable = true
	}
	return result
}

// Implications derives the royalty split a derivative inherits from its
// parent terms.
func (e *EconomicsCalculator) Implications(parent models.LicenseTerms) models.EconomicImplications {
	return models.EconomicImplications{
		ParentRoyaltyPercentage: parent.RoyaltyPercentage,
		DerivativeRoyaltyShare:  hundred.Sub(parent.RoyaltyPercentage).Sub(PlatformFeePercentage),
		PlatformFee:             PlatformFeePercentage,
	}
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(MoneyPrecision)
}

func assertPercentSum(parts ...decimal.Decimal) {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	if sum.Sub(hundred).Abs().GreaterThan(PercentEpsilon) {
		utils.InvariantViolation("percentages sum to %s, want 100", sum)
	}
}

func assertAmountSum(total decimal.Decimal, parts ...decimal.Decimal) {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	if sum.Sub(total).Abs().GreaterThan(SplitEpsilon) {
		utils.InvariantViolation("split parts sum to %s, want %s", sum, total)
	}
}
