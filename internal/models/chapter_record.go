// internal/models/chapter_record.go
package models

import "time"

type MigrationEntry struct {
	FromVersion string    `json:"from_version"`
	ToVersion   string    `json:"to_version"`
	Changes     []string  `json:"changes"`
	MigratedAt  time.Time `json:"migrated_at"`
}

type VersionInfo struct {
	SchemaVersion    string           `json:"schema_version"`
	DataVersion      int64            `json:"data_version"`
	MigrationHistory []MigrationEntry `json:"migration_history"`
}

type ChapterMetadata struct {
	BookID        string    `json:"book_id"`
	ChapterNumber int       `json:"chapter_number"`
	Title         string    `json:"title"`
	AuthorAddress string    `json:"author_address"`
	ContentRef    string    `json:"content_ref"`
	WordCount     int       `json:"word_count"`
	PublishedAt   time.Time `json:"published_at"`
}

type BlockchainProof struct {
	TransactionHash string `json:"transaction_hash"`
	IPAssetID       string `json:"ip_asset_id"`
	LicenseTermsID  string `json:"license_terms_id"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
}

type ProtectionFlags struct {
	Encrypted        bool `json:"encrypted"`
	Watermarked      bool `json:"watermarked"`
	AccessControlled bool `json:"access_controlled"`
	DownloadBlocked  bool `json:"download_blocked"`
}

// ChapterRecord is the JSON document stored per (bookId, chapterNumber).
type ChapterRecord struct {
	Metadata     ChapterMetadata    `json:"metadata"`
	LicenseTerms LicenseTerms       `json:"license_terms"`
	Blockchain   BlockchainProof    `json:"blockchain"`
	Economics    *EconomicsSnapshot `json:"economics,omitempty"`
	Protection   *ProtectionFlags   `json:"protection,omitempty"`
	Version      VersionInfo        `json:"version"`
}
