// internal/services/license_catalog.go
package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// Default license terms ids per tier.
const (
	FreeLicenseTermsID      = "1"
	PremiumLicenseTermsID   = "2"
	ExclusiveLicenseTermsID = "3"
)

var defaultTerms = map[models.LicenseTier]models.LicenseTerms{
	models.LicenseTierFree: {
		LicenseTermsID:         FreeLicenseTermsID,
		Tier:                   models.LicenseTierFree,
		Transferable:           true,
		CommercialUse:          false,
		DerivativesAllowed:     true,
		DerivativesAttribution: true,
		RoyaltyPercentage:      decimal.Zero,
		Price:                  decimal.Zero,
		Distribution:           []string{models.ChannelDigital},
		Restrictions:           []string{"Non-commercial use only"},
	},
	models.LicenseTierPremium: {
		LicenseTermsID:         PremiumLicenseTermsID,
		Tier:                   models.LicenseTierPremium,
		Transferable:           true,
		CommercialUse:          true,
		CommercialAttribution:  true,
		DerivativesAllowed:     true,
		DerivativesAttribution: true,
		RoyaltyPercentage:      decimal.NewFromInt(10),
		Price:                  decimal.NewFromInt(100),
		Distribution:           []string{models.ChannelDigital, models.ChannelPrint, models.ChannelAudio, models.ChannelVideo},
	},
	models.LicenseTierExclusive: {
		LicenseTermsID:     ExclusiveLicenseTermsID,
		Tier:               models.LicenseTierExclusive,
		Transferable:       false,
		CommercialUse:      true,
		DerivativesAllowed: true,
		Exclusivity:        true,
		RoyaltyPercentage:  decimal.NewFromInt(25),
		Price:              decimal.NewFromInt(1000),
		Distribution:       []string{models.ChannelAll},
	},
}

// LicenseCatalog serves the fixed default terms of each tier.
type LicenseCatalog struct {
	strict bool
}

// NewLicenseCatalog builds a catalog. In strict mode ParseTier rejects
// unknown tiers instead of falling back to free.
func NewLicenseCatalog(strict bool) *LicenseCatalog {
	return &LicenseCatalog{strict: strict}
}

// DefaultTerms returns a copy of the tier's terms. Unknown tiers get the free
// terms.
func (c *LicenseCatalog) DefaultTerms(tier models.LicenseTier) models.LicenseTerms {
	terms, ok := defaultTerms[tier]
	if !ok {
		terms = defaultTerms[models.LicenseTierFree]
	}
	assertTermsSane(terms)
	return terms.Clone()
}

func assertTermsSane(t models.LicenseTerms) {
	if t.RoyaltyPercentage.IsNegative() || t.RoyaltyPercentage.GreaterThan(hundred) {
		utils.InvariantViolation("tier %s royalty %s outside 0-100", t.Tier, t.RoyaltyPercentage)
	}
	if t.Price.IsNegative() {
		utils.InvariantViolation("tier %s has negative price %s", t.Tier, t.Price)
	}
}

// ParseTier normalizes user input into a tier.
func (c *LicenseCatalog) ParseTier(raw string) (models.LicenseTier, error) {
	tier := models.LicenseTier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := defaultTerms[tier]; ok {
		return tier, nil
	}
	if c.strict {
		return "", utils.NewValidationError("tier", "tier must be one of: free, premium, exclusive")
	}
	return models.LicenseTierFree, nil
}

func (c *LicenseCatalog) All() []models.LicenseTerms {
	all := make([]models.LicenseTerms, 0, len(models.LicenseTiers))
	for _, tier := range models.LicenseTiers {
		all = append(all, c.DefaultTerms(tier))
	}
	return all
}

// ByTermsID finds catalog terms by id.
func (c *LicenseCatalog) ByTermsID(id string) (models.LicenseTerms, bool) {
	for _, tier := range models.LicenseTiers {
		if defaultTerms[tier].LicenseTermsID == id {
			return c.DefaultTerms(tier), true
		}
	}
	return models.LicenseTerms{}, false
}

// LowestCompatible returns the cheapest tier that allows derivatives for
// the given use by a third party. Exclusive terms never qualify.
func (c *LicenseCatalog) LowestCompatible(use models.IntendedUse) models.LicenseTerms {
	for _, tier := range models.LicenseTiers {
		terms := defaultTerms[tier]
		if terms.Exclusivity || !terms.DerivativesAllowed {
			continue
		}
		if use == models.IntendedUseCommercial && !terms.CommercialUse {
			continue
		}
		return terms.Clone()
	}
	return c.DefaultTerms(models.LicenseTierPremium)
}
