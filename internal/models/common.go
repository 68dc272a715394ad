// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns an id so the same models work on postgres and sqlite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type LicenseTier string

const (
	LicenseTierFree      LicenseTier = "free"
	LicenseTierPremium   LicenseTier = "premium"
	LicenseTierExclusive LicenseTier = "exclusive"
)

// LicenseTiers lists tiers from least to most restrictive.
var LicenseTiers = []LicenseTier{LicenseTierFree, LicenseTierPremium, LicenseTierExclusive}

type AccessReason string

const (
	AccessReasonFree               AccessReason = "free"
	AccessReasonOwner              AccessReason = "owner"
	AccessReasonBlockchainUnlocked AccessReason = "blockchain_unlocked"
	AccessReasonUnlocked           AccessReason = "unlocked"
	AccessReasonLicensed           AccessReason = "licensed"
	AccessReasonNoAccess           AccessReason = "no_access"
)

type IntendedUse string

const (
	IntendedUseCommercial    IntendedUse = "commercial"
	IntendedUseEducational   IntendedUse = "educational"
	IntendedUsePersonal      IntendedUse = "personal"
	IntendedUseNonCommercial IntendedUse = "non-commercial"
)

func (u IntendedUse) Valid() bool {
	switch u {
	case IntendedUseCommercial, IntendedUseEducational, IntendedUsePersonal, IntendedUseNonCommercial:
		return true
	}
	return false
}

type TargetAudience string

const (
	TargetAudienceGeneral    TargetAudience = "general"
	TargetAudienceChildren   TargetAudience = "children"
	TargetAudienceYoungAdult TargetAudience = "young_adult"
	TargetAudienceAdult      TargetAudience = "adult"
)

type CompatibilityStatus string

const (
	CompatibilityCompatible   CompatibilityStatus = "compatible"
	CompatibilityConditional  CompatibilityStatus = "conditional"
	CompatibilityIncompatible CompatibilityStatus = "incompatible"
)

// Severity orders statuses so the worst outcome can be picked.
func (s CompatibilityStatus) Severity() int {
	switch s {
	case CompatibilityIncompatible:
		return 2
	case CompatibilityConditional:
		return 1
	default:
		return 0
	}
}

// Distribution channels
const (
	ChannelDigital = "Digital"
	ChannelPrint   = "Print"
	ChannelAudio   = "Audio"
	ChannelVideo   = "Video"
	ChannelAll     = "All"
)
