// internal/services/access_service.go
package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storyline-backend/internal/ledger"
	"github.com/javajoker/storyline-backend/internal/metrics"
	"github.com/javajoker/storyline-backend/internal/models"
)

// BookNotRegisteredMessage tells the caller to register the book rather than
// ask the reader to pay.
const BookNotRegisteredMessage = "Book is not registered for revenue sharing"

type AccessRequest struct {
	BookID        string
	ChapterNumber int
	UserAddress   string
	IPAssetID     string
}

type AccessDecision struct {
	HasAccess bool                `json:"has_access"`
	Reason    models.AccessReason `json:"reason"`
	Error     string              `json:"error,omitempty"`
}

// AccessCheck is one entitlement source consulted after the book gate.
// An error counts as "not granted by this check".
type AccessCheck interface {
	Name() string
	Reason() models.AccessReason
	Check(ctx context.Context, req AccessRequest) (bool, error)
}

type AccessService struct {
	chain  ChainRegistry
	checks []AccessCheck
	log    *logrus.Logger
}

// NewAccessService wires the default order: on-chain unlock, local ledger,
// license token.
func NewAccessService(chain ChainRegistry, store ledger.Store, log *logrus.Logger) *AccessService {
	return NewAccessServiceWithChecks(chain, log,
		&ChainUnlockCheck{Chain: chain},
		&LedgerUnlockCheck{Store: store},
		&LicenseTokenCheck{Chain: chain},
	)
}

func NewAccessServiceWithChecks(chain ChainRegistry, log *logrus.Logger, checks ...AccessCheck) *AccessService {
	return &AccessService{chain: chain, checks: checks, log: log}
}

// Evaluate decides whether the user may read the chapter. Steps run strictly
// in order and the first grant wins; dependency failures never grant access.
func (s *AccessService) Evaluate(ctx context.Context, req AccessRequest) AccessDecision {
	decision := s.evaluate(ctx, req)
	metrics.AccessDecisionsTotal.WithLabelValues(string(decision.Reason)).Inc()
	return decision
}

func (s *AccessService) evaluate(ctx context.Context, req AccessRequest) AccessDecision {
	if models.IsFreeChapter(req.ChapterNumber) {
		return granted(models.AccessReasonFree)
	}

	user := models.NormalizeAddress(req.UserAddress)
	if user == "" {
		return denied("")
	}
	req.UserAddress = user

	if author, ok := models.ParseBookAuthor(req.BookID); ok && strings.EqualFold(author, user) {
		return granted(models.AccessReasonOwner)
	}

	active, err := s.chain.IsBookActive(ctx, req.BookID)
	if err != nil {
		s.degrade("book_active", req, err)
	}
	if !active {
		return denied(BookNotRegisteredMessage)
	}

	for _, check := range s.checks {
		ok, err := check.Check(ctx, req)
		if err != nil {
			s.degrade(check.Name(), req, err)
			continue
		}
		if ok {
			return granted(check.Reason())
		}
	}

	return denied("")
}

func (s *AccessService) degrade(check string, req AccessRequest, err error) {
	metrics.AccessCheckFailuresTotal.WithLabelValues(check).Inc()
	s.log.WithFields(logrus.Fields{
		"check":   check,
		"book_id": req.BookID,
		"chapter": req.ChapterNumber,
	}).WithError(err).Warn("Access check failed, treating as not granted")
}

func granted(reason models.AccessReason) AccessDecision {
	return AccessDecision{HasAccess: true, Reason: reason}
}

func denied(message string) AccessDecision {
	return AccessDecision{HasAccess: false, Reason: models.AccessReasonNoAccess, Error: message}
}

type ChainUnlockCheck struct {
	Chain ChainRegistry
}

func (c *ChainUnlockCheck) Name() string                { return "chain_unlock" }
func (c *ChainUnlockCheck) Reason() models.AccessReason { return models.AccessReasonBlockchainUnlocked }

func (c *ChainUnlockCheck) Check(ctx context.Context, req AccessRequest) (bool, error) {
	return c.Chain.HasUnlockedChapter(ctx, req.UserAddress, req.BookID, req.ChapterNumber)
}

type LedgerUnlockCheck struct {
	Store ledger.Store
}

func (c *LedgerUnlockCheck) Name() string                { return "ledger_unlock" }
func (c *LedgerUnlockCheck) Reason() models.AccessReason { return models.AccessReasonUnlocked }

func (c *LedgerUnlockCheck) Check(ctx context.Context, req AccessRequest) (bool, error) {
	return c.Store.HasUnlocked(ctx, req.UserAddress, req.BookID, req.ChapterNumber)
}

// LicenseTokenCheck only runs when the request names an IP asset.
type LicenseTokenCheck struct {
	Chain ChainRegistry
}

func (c *LicenseTokenCheck) Name() string                { return "license_token" }
func (c *LicenseTokenCheck) Reason() models.AccessReason { return models.AccessReasonLicensed }

func (c *LicenseTokenCheck) Check(ctx context.Context, req AccessRequest) (bool, error) {
	if strings.TrimSpace(req.IPAssetID) == "" {
		return false, nil
	}
	return c.Chain.HoldsLicenseToken(ctx, req.UserAddress, req.IPAssetID)
}
