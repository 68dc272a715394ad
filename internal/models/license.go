// internal/models/license.go
package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// LicenseTerms is attached to a chapter version and never mutated afterwards;
// a new version supersedes it.
type LicenseTerms struct {
	LicenseTermsID         string          `json:"license_terms_id"`
	Tier                   LicenseTier     `json:"tier"`
	Transferable           bool            `json:"transferable"`
	CommercialUse          bool            `json:"commercial_use"`
	CommercialAttribution  bool            `json:"commercial_attribution"`
	DerivativesAllowed     bool            `json:"derivatives_allowed"`
	DerivativesAttribution bool            `json:"derivatives_attribution"`
	Exclusivity            bool            `json:"exclusivity"`
	ShareAlike             bool            `json:"share_alike"`
	RoyaltyPercentage      decimal.Decimal `json:"royalty_percentage"`
	Price                  decimal.Decimal `json:"price"`
	Distribution           []string        `json:"distribution"`
	Restrictions           []string        `json:"restrictions,omitempty"`
	Territories            []string        `json:"territories,omitempty"`
	Expiration             int64           `json:"expiration"` // unix seconds, 0 = never
}

// Clone returns a deep copy so callers cannot mutate shared terms.
func (t LicenseTerms) Clone() LicenseTerms {
	t.Distribution = append([]string(nil), t.Distribution...)
	t.Restrictions = append([]string(nil), t.Restrictions...)
	t.Territories = append([]string(nil), t.Territories...)
	return t
}

// AllowsChannel reports whether the terms cover a distribution channel.
func (t LicenseTerms) AllowsChannel(channel string) bool {
	for _, c := range t.Distribution {
		if c == ChannelAll || c == channel {
			return true
		}
	}
	return false
}

// ChapterLicense indexes a published chapter by its IP asset id so derivative
// creators can resolve the parent terms.
type ChapterLicense struct {
	BaseModel
	IPAssetID              string          `json:"ip_asset_id" gorm:"size:66;not null;uniqueIndex"`
	BookID                 string          `json:"book_id" gorm:"size:255;not null;index:idx_chapter_licenses_book_chapter,priority:1"`
	ChapterNumber          int             `json:"chapter_number" gorm:"not null;index:idx_chapter_licenses_book_chapter,priority:2"`
	OwnerAddress           string          `json:"owner_address" gorm:"size:42;not null;index"`
	LicenseTermsID         string          `json:"license_terms_id" gorm:"size:66;not null"`
	Tier                   LicenseTier     `json:"tier" gorm:"type:varchar(20);not null"`
	Transferable           bool            `json:"transferable"`
	CommercialUse          bool            `json:"commercial_use"`
	CommercialAttribution  bool            `json:"commercial_attribution"`
	DerivativesAllowed     bool            `json:"derivatives_allowed"`
	DerivativesAttribution bool            `json:"derivatives_attribution"`
	Exclusivity            bool            `json:"exclusivity"`
	ShareAlike             bool            `json:"share_alike"`
	RoyaltyPercentage      decimal.Decimal `json:"royalty_percentage" gorm:"type:decimal(5,2);not null"`
	Price                  decimal.Decimal `json:"price" gorm:"type:decimal(20,6);not null"`
	Distribution           pq.StringArray  `json:"distribution" gorm:"type:text[]"`
	Restrictions           pq.StringArray  `json:"restrictions" gorm:"type:text[]"`
	Territories            pq.StringArray  `json:"territories" gorm:"type:text[]"`
	Expiration             int64           `json:"expiration" gorm:"default:0"`
	TransactionHash        string          `json:"transaction_hash" gorm:"size:66"`
}

// Terms rebuilds the immutable terms value from the stored row.
func (c *ChapterLicense) Terms() LicenseTerms {
	return LicenseTerms{
		LicenseTermsID:         c.LicenseTermsID,
		Tier:                   c.Tier,
		Transferable:           c.Transferable,
		CommercialUse:          c.CommercialUse,
		CommercialAttribution:  c.CommercialAttribution,
		DerivativesAllowed:     c.DerivativesAllowed,
		DerivativesAttribution: c.DerivativesAttribution,
		Exclusivity:            c.Exclusivity,
		ShareAlike:             c.ShareAlike,
		RoyaltyPercentage:      c.RoyaltyPercentage,
		Price:                  c.Price,
		Distribution:           append([]string(nil), c.Distribution...),
		Restrictions:           append([]string(nil), c.Restrictions...),
		Territories:            append([]string(nil), c.Territories...),
		Expiration:             c.Expiration,
	}
}

// SetTerms copies terms into the row columns.
func (c *ChapterLicense) SetTerms(t LicenseTerms) {
	c.LicenseTermsID = t.LicenseTermsID
	c.Tier = t.Tier
	c.Transferable = t.Transferable
	c.CommercialUse = t.CommercialUse
	c.CommercialAttribution = t.CommercialAttribution
	c.DerivativesAllowed = t.DerivativesAllowed
	c.DerivativesAttribution = t.DerivativesAttribution
	c.Exclusivity = t.Exclusivity
	c.ShareAlike = t.ShareAlike
	c.RoyaltyPercentage = t.RoyaltyPercentage
	c.Price = t.Price
	c.Distribution = pq.StringArray(t.Distribution)
	c.Restrictions = pq.StringArray(t.Restrictions)
	c.Territories = pq.StringArray(t.Territories)
	c.Expiration = t.Expiration
}
