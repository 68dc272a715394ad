// internal/services/inheritance_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

type staticLicenseSource map[string]models.ParentLicense

func (s staticLicenseSource) GetParentLicense(ctx context.Context, ipAssetID string) (*models.ParentLicense, error) {
	parent, ok := s[ipAssetID]
	if !ok {
		return nil, &utils.NotFoundError{Resource: "parent license", ID: ipAssetID}
	}
	return &parent, nil
}

func newTestInheritanceService(source ChapterLicenseSource) *InheritanceService {
	return NewInheritanceService(NewLicenseCatalog(false), NewEconomicsCalculator(), source, testLogger())
}

func parentWithTier(tier models.LicenseTier) models.ParentLicense {
	return models.ParentLicense{
		IPAssetID:     testIPID,
		BookID:        testBookID,
		ChapterNumber: 4,
		OwnerAddress:  testAuthor,
		Terms:         NewLicenseCatalog(false).DefaultTerms(tier),
	}
}

func intent(use models.IntendedUse) models.DerivativeIntent {
	return models.DerivativeIntent{CreatorAddress: testReader, IntendedUse: use}
}

func TestInheritance_PremiumCommercial(t *testing.T) {
	svc := newTestInheritanceService(nil)

	result := svc.Analyze(context.Background(), parentWithTier(models.LicenseTierPremium), intent(models.IntendedUseCommercial))

	assert.True(t, result.CanInherit)
	assert.Equal(t, models.LicenseTierPremium, result.ParentTier)
	assert.Equal(t, PremiumLicenseTermsID, result.ParentLicenseTermsID)
	assert.Nil(t, result.SuggestedAlternativeLicenseTermsID)
	assert.True(t, result.EconomicImplications.ParentRoyaltyPercentage.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.EconomicImplications.PlatformFee.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.EconomicImplications.DerivativeRoyaltyShare.Equal(decimal.NewFromInt(80)))
	assert.Contains(t, result.Conditions, "Attribution required")
	assert.Contains(t, result.Conditions, "Commercial attribution required")
}

func TestInheritance_FreeParentRefusesCommercial(t *testing.T) {
	svc := newTestInheritanceService(nil)
	parent := parentWithTier(models.LicenseTierFree)
	require.True(t, parent.Terms.DerivativesAllowed)

	result := svc.Analyze(context.Background(), parent, intent(models.IntendedUseCommercial))

	assert.False(t, result.CanInherit)
	require.NotNil(t, result.SuggestedAlternativeLicenseTermsID)
	assert.Equal(t, PremiumLicenseTermsID, *result.SuggestedAlternativeLicenseTermsID)
	assert.NotEmpty(t, result.RefusalReasons)
}

func TestInheritance_FreeParentAllowsNonCommercial(t *testing.T) {
	svc := newTestInheritanceService(nil)

	result := svc.Analyze(context.Background(), parentWithTier(models.LicenseTierFree), intent(models.IntendedUseEducational))

	assert.True(t, result.CanInherit)
	assert.Contains(t, result.Conditions, "Attribution required")
	assert.Contains(t, result.Conditions, "Non-commercial use only")
	assert.True(t, result.EconomicImplications.DerivativeRoyaltyShare.Equal(decimal.NewFromInt(90)))
}

func TestInheritance_ExclusiveNeverInheritable(t *testing.T) {
	svc := newTestInheritanceService(nil)

	for _, use := range []models.IntendedUse{
		models.IntendedUseCommercial,
		models.IntendedUseEducational,
		models.IntendedUsePersonal,
		models.IntendedUseNonCommercial,
	} {
		parent := parentWithTier(models.LicenseTierExclusive)
		require.True(t, parent.Terms.DerivativesAllowed)

		result := svc.Analyze(context.Background(), parent, intent(use))
		assert.False(t, result.CanInherit, "use=%s", use)
		require.NotNil(t, result.SuggestedAlternativeLicenseTermsID)
	}

	// exclusivity on otherwise permissive custom terms
	parent := parentWithTier(models.LicenseTierPremium)
	parent.Terms.Exclusivity = true
	result := svc.Analyze(context.Background(), parent, intent(models.IntendedUsePersonal))
	assert.False(t, result.CanInherit)
}

func TestInheritance_DerivativesNotAllowed(t *testing.T) {
	svc := newTestInheritanceService(nil)
	parent := parentWithTier(models.LicenseTierPremium)
	parent.Terms.DerivativesAllowed = false

	result := svc.Analyze(context.Background(), parent, intent(models.IntendedUsePersonal))

	assert.False(t, result.CanInherit)
	require.NotNil(t, result.SuggestedAlternativeLicenseTermsID)
	assert.Equal(t, FreeLicenseTermsID, *result.SuggestedAlternativeLicenseTermsID)
}

func TestInheritance_ExpiredAndShareAlike(t *testing.T) {
	svc := newTestInheritanceService(nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	parent := parentWithTier(models.LicenseTierPremium)
	parent.Terms.ShareAlike = true
	parent.Terms.Territories = []string{"US"}
	parent.Terms.Expiration = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()

	result := svc.Analyze(context.Background(), parent, intent(models.IntendedUsePersonal))

	assert.False(t, result.CanInherit)
	assert.Contains(t, result.RefusalReasons, "Parent license has expired")
	assert.Contains(t, result.Conditions, "Derivative must be released under the same license terms")
	assert.Contains(t, result.Conditions, "Limited to territories: US")
	assert.Contains(t, result.Conditions, "License expires at 2025-06-01T00:00:00Z")
}

func TestInheritance_CompatibilityAccumulatesAllRules(t *testing.T) {
	svc := newTestInheritanceService(nil)
	result := svc.Analyze(context.Background(), parentWithTier(models.LicenseTierFree), intent(models.IntendedUseCommercial))

	report := svc.AnalyzeCompatibility(result, models.DerivativeParams{
		IntendedUse:          models.IntendedUseCommercial,
		TargetAudience:       models.TargetAudienceChildren,
		DistributionChannels: []string{"print", "Digital"},
	})

	assert.Equal(t, models.CompatibilityIncompatible, report.Status)
	assert.Len(t, report.Issues, 1)
	assert.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Requirements, "Content rating review required for a children's audience")
}

func TestInheritance_CompatibilityConditional(t *testing.T) {
	svc := newTestInheritanceService(nil)
	result := svc.Analyze(context.Background(), parentWithTier(models.LicenseTierFree), intent(models.IntendedUseEducational))

	report := svc.AnalyzeCompatibility(result, models.DerivativeParams{
		IntendedUse:          models.IntendedUseEducational,
		TargetAudience:       models.TargetAudienceGeneral,
		DistributionChannels: []string{models.ChannelPrint},
	})

	assert.Equal(t, models.CompatibilityConditional, report.Status)
	assert.Empty(t, report.Issues)
	assert.Len(t, report.Warnings, 1)
}

func TestInheritance_CompatibilityCompatible(t *testing.T) {
	svc := newTestInheritanceService(nil)
	result := svc.Analyze(context.Background(), parentWithTier(models.LicenseTierPremium), intent(models.IntendedUseCommercial))

	report := svc.AnalyzeCompatibility(result, models.DerivativeParams{
		IntendedUse:          models.IntendedUseCommercial,
		TargetAudience:       models.TargetAudienceAdult,
		DistributionChannels: []string{models.ChannelPrint},
	})

	assert.Equal(t, models.CompatibilityCompatible, report.Status)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, result.Conditions, report.Requirements)
}

func TestInheritance_AnalyzeByIPAsset(t *testing.T) {
	svc := newTestInheritanceService(staticLicenseSource{testIPID: parentWithTier(models.LicenseTierPremium)})

	parent, result, err := svc.AnalyzeByIPAsset(context.Background(), testIPID, intent(models.IntendedUseCommercial))
	require.NoError(t, err)
	assert.Equal(t, testBookID, parent.BookID)
	assert.True(t, result.CanInherit)
	assert.Equal(t, testIPID, result.ParentIPAssetID)
}

func TestInheritance_AnalyzeByIPAssetErrors(t *testing.T) {
	svc := newTestInheritanceService(staticLicenseSource{})
	ctx := context.Background()

	_, _, err := svc.AnalyzeByIPAsset(ctx, "too-short", intent(models.IntendedUseCommercial))
	assert.True(t, utils.IsValidationError(err))

	_, _, err = svc.AnalyzeByIPAsset(ctx, testIPID, models.DerivativeIntent{CreatorAddress: "0xnope"})
	assert.True(t, utils.IsValidationError(err))

	_, _, err = svc.AnalyzeByIPAsset(ctx, testIPID, intent(models.IntendedUseCommercial))
	assert.True(t, utils.IsNotFound(err))
}

func TestInheritance_InsightsAndRecommendations(t *testing.T) {
	svc := newTestInheritanceService(nil)
	parent := parentWithTier(models.LicenseTierFree)
	result := svc.Analyze(context.Background(), parent, intent(models.IntendedUseCommercial))

	insights := svc.Insights(parent, result)
	assert.Equal(t, "none", insights.RoyaltyBurden)
	assert.True(t, insights.RequiresAttribution)
	assert.False(t, insights.CommercialReady)
	assert.Equal(t, len(result.Conditions), insights.ConditionCount)

	report := svc.AnalyzeCompatibility(result, models.DerivativeParams{IntendedUse: models.IntendedUseCommercial})
	recs := svc.Recommendations(result, &report, nil)
	assert.Contains(t, recs, "Negotiate a premium license (terms 2) with the parent author")
	assert.Contains(t, recs, "Change the intended use or obtain a commercial license before publishing")

	exclusive := parentWithTier(models.LicenseTierExclusive)
	assert.Equal(t, "high", svc.Insights(exclusive, svc.Analyze(context.Background(), exclusive, intent(models.IntendedUsePersonal))).RoyaltyBurden)
}
