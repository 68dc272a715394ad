// internal/services/metadata_service.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

const (
	CurrentSchemaVersion = "2.0.0"
	legacySchemaVersion  = "1.0.0"
)

type migrationStep struct {
	from, to string
	changes  []string
	apply    func(rec *models.ChapterRecord)
}

// MetadataVersioner shapes persisted chapter records and keeps their
// economics and version trail append-only.
type MetadataVersioner struct {
	catalog *LicenseCatalog
	steps   []migrationStep
	now     func() time.Time
}

type PublishInput struct {
	BookID          string               `json:"book_id" validate:"required"`
	ChapterNumber   int                  `json:"chapter_number" validate:"required,min=1"`
	Title           string               `json:"title" validate:"required,max=255"`
	AuthorAddress   string               `json:"author_address" validate:"required,wallet_address"`
	ContentRef      string               `json:"content_ref" validate:"required"`
	WordCount       int                  `json:"word_count" validate:"min=0"`
	Tier            models.LicenseTier   `json:"tier"`
	UnlockPrice     decimal.Decimal      `json:"unlock_price"`
	TransactionHash string               `json:"transaction_hash" validate:"required"`
	IPAssetID       string               `json:"ip_asset_id" validate:"required,ip_asset_id"`
	BlockNumber     uint64               `json:"block_number"`
	Terms           *models.LicenseTerms `json:"license_terms,omitempty"`
}

func NewMetadataVersioner(catalog *LicenseCatalog) *MetadataVersioner {
	v := &MetadataVersioner{catalog: catalog, now: time.Now}
	v.steps = []migrationStep{
		{
			from:    "1.0.0",
			to:      "1.1.0",
			changes: []string{"added protection flags"},
			apply: func(rec *models.ChapterRecord) {
				if rec.Protection == nil {
					p := defaultProtection(rec.Metadata.ChapterNumber)
					rec.Protection = &p
				}
			},
		},
		{
			from:    "1.1.0",
			to:      "2.0.0",
			changes: []string{"added economics snapshot", "license terms carry terms id"},
			apply: func(rec *models.ChapterRecord) {
				if rec.LicenseTerms.LicenseTermsID == "" {
					rec.LicenseTerms.LicenseTermsID = v.catalog.DefaultTerms(rec.LicenseTerms.Tier).LicenseTermsID
				}
				if rec.Economics == nil {
					price := rec.LicenseTerms.Price
					if models.IsFreeChapter(rec.Metadata.ChapterNumber) {
						price = decimal.Zero
					}
					snap := newSnapshot(price, rec.LicenseTerms.RoyaltyPercentage, rec.Metadata.PublishedAt, "migrated")
					rec.Economics = &snap
				}
			},
		},
	}
	return v
}

// BuildChapterRecord shapes the document written at publish time. The
// caller supplies on-chain proof; nothing here writes to the chain.
func (v *MetadataVersioner) BuildChapterRecord(in PublishInput) (models.ChapterRecord, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return models.ChapterRecord{}, err
	}
	if in.UnlockPrice.IsNegative() {
		return models.ChapterRecord{}, utils.NewValidationError("unlock_price", "unlock_price must not be negative")
	}

	terms := v.catalog.DefaultTerms(in.Tier)
	if in.Terms != nil {
		terms = in.Terms.Clone()
		if terms.RoyaltyPercentage.IsNegative() || terms.RoyaltyPercentage.GreaterThan(hundred) {
			return models.ChapterRecord{}, utils.NewValidationError("license_terms.royalty_percentage", "royalty_percentage must be between 0 and 100")
		}
		if terms.Price.IsNegative() {
			return models.ChapterRecord{}, utils.NewValidationError("license_terms.price", "price must not be negative")
		}
	}

	price := in.UnlockPrice
	if models.IsFreeChapter(in.ChapterNumber) {
		price = decimal.Zero
	}

	now := v.now().UTC()
	snap := newSnapshot(price, terms.RoyaltyPercentage, now, "initial publish")
	protection := defaultProtection(in.ChapterNumber)

	return models.ChapterRecord{
		Metadata: models.ChapterMetadata{
			BookID:        in.BookID,
			ChapterNumber: in.ChapterNumber,
			Title:         strings.TrimSpace(in.Title),
			AuthorAddress: models.NormalizeAddress(in.AuthorAddress),
			ContentRef:    in.ContentRef,
			WordCount:     in.WordCount,
			PublishedAt:   now,
		},
		LicenseTerms: terms,
		Blockchain: models.BlockchainProof{
			TransactionHash: in.TransactionHash,
			IPAssetID:       in.IPAssetID,
			LicenseTermsID:  terms.LicenseTermsID,
			BlockNumber:     in.BlockNumber,
		},
		Economics:  &snap,
		Protection: &protection,
		Version: models.VersionInfo{
			SchemaVersion:    CurrentSchemaVersion,
			DataVersion:      1,
			MigrationHistory: []models.MigrationEntry{},
		},
	}, nil
}

// Migrate upgrades a record to CurrentSchemaVersion, appending one history
// entry per step. Records without a version are treated as 1.0.0.
func (v *MetadataVersioner) Migrate(rec models.ChapterRecord) (models.ChapterRecord, error) {
	out := cloneRecord(rec)
	if out.Version.SchemaVersion == "" {
		out.Version.SchemaVersion = legacySchemaVersion
	}

	for out.Version.SchemaVersion != CurrentSchemaVersion {
		step, ok := v.step(out.Version.SchemaVersion)
		if !ok {
			return models.ChapterRecord{}, utils.NewValidationError("version.schema_version",
				fmt.Sprintf("no migration from schema %s", out.Version.SchemaVersion))
		}
		step.apply(&out)
		out.Version.MigrationHistory = append(out.Version.MigrationHistory, models.MigrationEntry{
			FromVersion: step.from,
			ToVersion:   step.to,
			Changes:     append([]string(nil), step.changes...),
			MigratedAt:  v.now().UTC(),
		})
		out.Version.SchemaVersion = step.to
		out.Version.DataVersion++
	}
	return out, nil
}

func (v *MetadataVersioner) step(from string) (migrationStep, bool) {
	for _, s := range v.steps {
		if s.from == from {
			return s, true
		}
	}
	return migrationStep{}, false
}

// AppendPrice records a price change. History is never rewritten.
func (v *MetadataVersioner) AppendPrice(rec models.ChapterRecord, price, royalty decimal.Decimal, reason string) (models.ChapterRecord, error) {
	if price.IsNegative() {
		return models.ChapterRecord{}, utils.NewValidationError("price", "price must not be negative")
	}
	if royalty.IsNegative() || royalty.GreaterThan(hundred) {
		return models.ChapterRecord{}, utils.NewValidationError("royalty_percentage", "royalty_percentage must be between 0 and 100")
	}
	if models.IsFreeChapter(rec.Metadata.ChapterNumber) && price.IsPositive() {
		return models.ChapterRecord{}, utils.NewValidationError("price", "free chapters cannot be priced")
	}

	out, err := v.mutableEconomics(rec)
	if err != nil {
		return models.ChapterRecord{}, err
	}
	out.Economics.PriceHistory = append(out.Economics.PriceHistory, models.PricePoint{
		Price:             price,
		RoyaltyPercentage: royalty,
		EffectiveAt:       v.now().UTC(),
		Reason:            reason,
	})
	out.Economics.CurrentUnlockPrice = price
	out.Economics.CurrentRoyaltyPercentage = royalty
	return v.commit(out), nil
}

func (v *MetadataVersioner) RecordUnlockRevenue(rec models.ChapterRecord, amount decimal.Decimal) (models.ChapterRecord, error) {
	if amount.IsNegative() {
		utils.InvariantViolation("negative unlock revenue %s", amount)
	}
	out, err := v.mutableEconomics(rec)
	if err != nil {
		return models.ChapterRecord{}, err
	}
	out.Economics.TotalUnlockRevenue = out.Economics.TotalUnlockRevenue.Add(amount)
	out.Economics.UnlockCount++
	return v.commit(out), nil
}

func (v *MetadataVersioner) RecordRoyalty(rec models.ChapterRecord, earned, paid decimal.Decimal) (models.ChapterRecord, error) {
	if earned.IsNegative() || paid.IsNegative() {
		utils.InvariantViolation("negative royalty amounts earned=%s paid=%s", earned, paid)
	}
	out, err := v.mutableEconomics(rec)
	if err != nil {
		return models.ChapterRecord{}, err
	}
	out.Economics.TotalRoyaltiesEarned = out.Economics.TotalRoyaltiesEarned.Add(earned)
	out.Economics.TotalRoyaltiesPaid = out.Economics.TotalRoyaltiesPaid.Add(paid)
	return v.commit(out), nil
}

// ValidateSnapshot checks that the current fields mirror the last history
// entry and that history is in time order.
func (v *MetadataVersioner) ValidateSnapshot(snap *models.EconomicsSnapshot) error {
	if snap == nil {
		return utils.NewValidationError("economics", "economics snapshot is missing")
	}
	if len(snap.PriceHistory) == 0 {
		return utils.NewValidationError("economics.price_history", "price history is empty")
	}
	for i := 1; i < len(snap.PriceHistory); i++ {
		if snap.PriceHistory[i].EffectiveAt.Before(snap.PriceHistory[i-1].EffectiveAt) {
			return utils.NewValidationError("economics.price_history", "price history is out of order")
		}
	}
	last := snap.PriceHistory[len(snap.PriceHistory)-1]
	if !last.Price.Equal(snap.CurrentUnlockPrice) || !last.RoyaltyPercentage.Equal(snap.CurrentRoyaltyPercentage) {
		return utils.NewValidationError("economics", "current price does not match the latest price history entry")
	}
	return nil
}

// MetadataHash is the keccak256 of the record's JSON encoding.
func (v *MetadataVersioner) MetadataHash(rec models.ChapterRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode chapter record: %w", err)
	}
	return utils.Keccak256Hex(data), nil
}

func (v *MetadataVersioner) mutableEconomics(rec models.ChapterRecord) (models.ChapterRecord, error) {
	if err := v.ValidateSnapshot(rec.Economics); err != nil {
		return models.ChapterRecord{}, err
	}
	return cloneRecord(rec), nil
}

func (v *MetadataVersioner) commit(rec models.ChapterRecord) models.ChapterRecord {
	if err := v.ValidateSnapshot(rec.Economics); err != nil {
		utils.InvariantViolation("economics snapshot broken after update: %v", err)
	}
	rec.Version.DataVersion++
	return rec
}

func newSnapshot(price, royalty decimal.Decimal, at time.Time, reason string) models.EconomicsSnapshot {
	return models.EconomicsSnapshot{
		CurrentUnlockPrice:       price,
		CurrentRoyaltyPercentage: royalty,
		PriceHistory: []models.PricePoint{{
			Price:             price,
			RoyaltyPercentage: royalty,
			EffectiveAt:       at,
			Reason:            reason,
		}},
		TotalUnlockRevenue:   decimal.Zero,
		TotalRoyaltiesEarned: decimal.Zero,
		TotalRoyaltiesPaid:   decimal.Zero,
	}
}

func defaultProtection(chapterNumber int) models.ProtectionFlags {
	paid := !models.IsFreeChapter(chapterNumber)
	return models.ProtectionFlags{
		Encrypted:        paid,
		Watermarked:      true,
		AccessControlled: paid,
		DownloadBlocked:  paid,
	}
}

func cloneRecord(rec models.ChapterRecord) models.ChapterRecord {
	out := rec
	out.LicenseTerms = rec.LicenseTerms.Clone()
	if rec.Economics != nil {
		snap := *rec.Economics
		snap.PriceHistory = append([]models.PricePoint(nil), rec.Economics.PriceHistory...)
		out.Economics = &snap
	}
	if rec.Protection != nil {
		p := *rec.Protection
		out.Protection = &p
	}
	out.Version.MigrationHistory = append([]models.MigrationEntry{}, rec.Version.MigrationHistory...)
	return out
}
