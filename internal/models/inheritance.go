// internal/models/inheritance.go
package models

import "github.com/shopspring/decimal"

// ParentLicense is the parent chapter a derivative would build on.
type ParentLicense struct {
	IPAssetID     string       `json:"ip_asset_id"`
	BookID        string       `json:"book_id"`
	ChapterNumber int          `json:"chapter_number"`
	OwnerAddress  string       `json:"owner_address"`
	Terms         LicenseTerms `json:"terms"`
}

// DerivativeIntent describes who wants to derive and for what use.
type DerivativeIntent struct {
	CreatorAddress string      `json:"creator_address"`
	IntendedUse    IntendedUse `json:"intended_use"`
}

type EconomicImplications struct {
	ParentRoyaltyPercentage decimal.Decimal `json:"parent_royalty_percentage"`
	DerivativeRoyaltyShare  decimal.Decimal `json:"derivative_royalty_share"`
	PlatformFee             decimal.Decimal `json:"platform_fee"`
}

type InheritanceResult struct {
	ParentIPAssetID                    string               `json:"parent_ip_asset_id"`
	ParentLicenseTermsID               string               `json:"parent_license_terms_id"`
	CanInherit                         bool                 `json:"can_inherit"`
	ParentTier                         LicenseTier          `json:"parent_tier"`
	SuggestedAlternativeLicenseTermsID *string              `json:"suggested_alternative_license_terms_id"`
	Conditions                         []string             `json:"conditions"`
	RefusalReasons                     []string             `json:"refusal_reasons,omitempty"`
	EconomicImplications               EconomicImplications `json:"economic_implications"`
}

// DerivativeParams are the declared characteristics checked for compatibility.
type DerivativeParams struct {
	IntendedUse          IntendedUse    `json:"intended_use"`
	TargetAudience       TargetAudience `json:"target_audience"`
	DistributionChannels []string       `json:"distribution_channels"`
}

type CompatibilityReport struct {
	Status       CompatibilityStatus `json:"status"`
	Issues       []string            `json:"issues"`
	Warnings     []string            `json:"warnings"`
	Requirements []string            `json:"requirements"`
}

type InheritanceInsights struct {
	RoyaltyBurden       string `json:"royalty_burden"`
	RequiresAttribution bool   `json:"requires_attribution"`
	CommercialReady     bool   `json:"commercial_ready"`
	ShareAlike          bool   `json:"share_alike"`
	ConditionCount      int    `json:"condition_count"`
}
