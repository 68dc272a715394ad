// internal/services/inheritance_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/metrics"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

// ChapterLicenseSource resolves a published chapter by IP asset id.
type ChapterLicenseSource interface {
	GetParentLicense(ctx context.Context, ipAssetID string) (*models.ParentLicense, error)
}

type InheritanceService struct {
	catalog   *LicenseCatalog
	economics *EconomicsCalculator
	source    ChapterLicenseSource
	log       *logrus.Logger
	now       func() time.Time
}

func NewInheritanceService(catalog *LicenseCatalog, economics *EconomicsCalculator, source ChapterLicenseSource, log *logrus.Logger) *InheritanceService {
	return &InheritanceService{
		catalog:   catalog,
		economics: economics,
		source:    source,
		log:       log,
		now:       time.Now,
	}
}

// AnalyzeByIPAsset loads the parent chapter and analyzes inheritance for it.
func (s *InheritanceService) AnalyzeByIPAsset(ctx context.Context, parentIPAssetID string, intent models.DerivativeIntent) (*models.ParentLicense, models.InheritanceResult, error) {
	if err := utils.ValidateIPAssetID("parentIpId", parentIPAssetID); err != nil {
		return nil, models.InheritanceResult{}, err
	}
	if err := utils.ValidateWalletAddress("derivativeCreator", intent.CreatorAddress); err != nil {
		return nil, models.InheritanceResult{}, err
	}

	parent, err := s.source.GetParentLicense(ctx, parentIPAssetID)
	if err != nil {
		return nil, models.InheritanceResult{}, err
	}
	return parent, s.Analyze(ctx, *parent, intent), nil
}

// Analyze decides whether the derivative may adopt the parent's terms.
// Exclusive parents are never inheritable, and a free parent cannot back a
// commercial derivative even when it allows derivatives.
func (s *InheritanceService) Analyze(ctx context.Context, parent models.ParentLicense, intent models.DerivativeIntent) models.InheritanceResult {
	terms := parent.Terms
	result := models.InheritanceResult{
		ParentIPAssetID:      parent.IPAssetID,
		ParentLicenseTermsID: terms.LicenseTermsID,
		ParentTier:           terms.Tier,
		CanInherit:           terms.DerivativesAllowed,
		Conditions:           []string{},
		EconomicImplications: s.economics.Implications(terms),
	}

	if !terms.DerivativesAllowed {
		result.RefusalReasons = append(result.RefusalReasons, "Parent license does not allow derivatives")
	}
	if terms.Exclusivity {
		result.CanInherit = false
		result.RefusalReasons = append(result.RefusalReasons, "Exclusive licenses cannot be inherited by third parties")
	}
	if terms.Tier == models.LicenseTierFree && intent.IntendedUse == models.IntendedUseCommercial {
		result.CanInherit = false
		result.RefusalReasons = append(result.RefusalReasons, "Commercial derivatives require at least a premium parent license")
	}
	if terms.Expiration > 0 && s.now().Unix() >= terms.Expiration {
		result.CanInherit = false
		result.RefusalReasons = append(result.RefusalReasons, "Parent license has expired")
	}
	if result.EconomicImplications.DerivativeRoyaltyShare.IsNegative() {
		result.CanInherit = false
		result.RefusalReasons = append(result.RefusalReasons, "Parent royalty leaves no revenue share for the derivative")
	}

	result.Conditions = inheritanceConditions(terms, intent)

	if !result.CanInherit {
		suggested := s.catalog.LowestCompatible(intent.IntendedUse).LicenseTermsID
		result.SuggestedAlternativeLicenseTermsID = &suggested
	}

	outcome := "allowed"
	if !result.CanInherit {
		outcome = "refused"
	}
	metrics.InheritanceAnalysesTotal.WithLabelValues(outcome).Inc()
	s.log.WithFields(logrus.Fields{
		"parent_ip_asset_id": parent.IPAssetID,
		"creator":            intent.CreatorAddress,
		"intended_use":       intent.IntendedUse,
		"outcome":            outcome,
	}).Debug("License inheritance analyzed")

	return result
}

func inheritanceConditions(terms models.LicenseTerms, intent models.DerivativeIntent) []string {
	conditions := []string{}
	if terms.DerivativesAttribution {
		conditions = append(conditions, "Attribution required")
	}
	if terms.CommercialAttribution && intent.IntendedUse == models.IntendedUseCommercial {
		conditions = append(conditions, "Commercial attribution required")
	}
	if terms.ShareAlike {
		conditions = append(conditions, "Derivative must be released under the same license terms")
	}
	conditions = append(conditions, terms.Restrictions...)
	if len(terms.Territories) > 0 {
		conditions = append(conditions, "Limited to territories: "+strings.Join(terms.Territories, ", "))
	}
	if terms.Expiration > 0 {
		conditions = append(conditions, "License expires at "+time.Unix(terms.Expiration, 0).UTC().Format(time.RFC3339))
	}
	return conditions
}

type compatibilityRule func(result models.InheritanceResult, params models.DerivativeParams, report *models.CompatibilityReport) models.CompatibilityStatus

var compatibilityRules = []compatibilityRule{
	func(result models.InheritanceResult, params models.DerivativeParams, report *models.CompatibilityReport) models.CompatibilityStatus {
		if params.IntendedUse == models.IntendedUseCommercial && result.ParentTier == models.LicenseTierFree {
			report.Issues = append(report.Issues, "Commercial use is not permitted under the parent's free license")
			return models.CompatibilityIncompatible
		}
		return models.CompatibilityCompatible
	},
	func(result models.InheritanceResult, params models.DerivativeParams, report *models.CompatibilityReport) models.CompatibilityStatus {
		if result.ParentTier == models.LicenseTierFree && containsFold(params.DistributionChannels, models.ChannelPrint) {
			report.Warnings = append(report.Warnings, "Print distribution is not covered by the free license; a premium license is needed for print rights")
			return models.CompatibilityConditional
		}
		return models.CompatibilityCompatible
	},
	func(result models.InheritanceResult, params models.DerivativeParams, report *models.CompatibilityReport) models.CompatibilityStatus {
		if params.TargetAudience == models.TargetAudienceChildren {
			report.Requirements = append(report.Requirements, "Content rating review required for a children's audience")
			return models.CompatibilityConditional
		}
		return models.CompatibilityCompatible
	},
}

// AnalyzeCompatibility runs every rule, keeps all their findings and reports
// the worst status.
func (s *InheritanceService) AnalyzeCompatibility(result models.InheritanceResult, params models.DerivativeParams) models.CompatibilityReport {
	report := models.CompatibilityReport{
		Status:       models.CompatibilityCompatible,
		Issues:       []string{},
		Warnings:     []string{},
		Requirements: []string{},
	}
	for _, rule := range compatibilityRules {
		if status := rule(result, params, &report); status.Severity() > report.Status.Severity() {
			report.Status = status
		}
	}
	report.Requirements = append(report.Requirements, result.Conditions...)
	return report
}

func (s *InheritanceService) Insights(parent models.ParentLicense, result models.InheritanceResult) models.InheritanceInsights {
	royalty := result.EconomicImplications.ParentRoyaltyPercentage
	burden := "none"
	switch {
	case royalty.GreaterThan(decimal.NewFromInt(20)):
		burden = "high"
	case royalty.GreaterThan(decimal.NewFromInt(10)):
		burden = "moderate"
	case royalty.IsPositive():
		burden = "low"
	}

	return models.InheritanceInsights{
		RoyaltyBurden:       burden,
		RequiresAttribution: parent.Terms.DerivativesAttribution || parent.Terms.CommercialAttribution,
		CommercialReady:     result.CanInherit && parent.Terms.CommercialUse,
		ShareAlike:          parent.Terms.ShareAlike,
		ConditionCount:      len(result.Conditions),
	}
}

// Recommendations turns the analysis into next steps for the creator.
// compatibility and economics may be nil on the lookup path.
func (s *InheritanceService) Recommendations(result models.InheritanceResult, compatibility *models.CompatibilityReport, economics *models.DerivativeEconomics) []string {
	recs := []string{}

	if !result.CanInherit {
		if result.SuggestedAlternativeLicenseTermsID != nil {
			if terms, ok := s.catalog.ByTermsID(*result.SuggestedAlternativeLicenseTermsID); ok {
				recs = append(recs, fmt.Sprintf("Negotiate a %s license (terms %s) with the parent author", terms.Tier, terms.LicenseTermsID))
			}
		}
		recs = append(recs, "Consider creating original content instead of a derivative")
	} else {
		for _, c := range result.Conditions {
			if c == "Attribution required" {
				recs = append(recs, "Credit the parent chapter and its author in the derivative")
				break
			}
		}
	}

	if compatibility != nil {
		switch compatibility.Status {
		case models.CompatibilityIncompatible:
			recs = append(recs, "Change the intended use or obtain a commercial license before publishing")
		case models.CompatibilityConditional:
			recs = append(recs, "Resolve the listed warnings and requirements before publishing")
		}
	}

	if economics != nil {
		if !economics.BreakEvenReachable {
			recs = append(recs, "Projected revenue does not cover production cost; revisit pricing")
		} else if economics.BreakEvenUnits > 10 {
			recs = append(recs, fmt.Sprintf("Break-even needs %d sales; plan promotion accordingly", economics.BreakEvenUnits))
		}
	}

	return recs
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
