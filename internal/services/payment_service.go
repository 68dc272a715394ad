// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/storyline-backend/internal/config"
	"github.com/javajoker/storyline-backend/internal/metrics"
	"github.com/javajoker/storyline-backend/internal/models"
	"github.com/javajoker/storyline-backend/internal/utils"
)

var (
	ErrAlreadyUnlocked = errors.New("chapter already unlocked")
	ErrPaymentCanceled = errors.New("payment was canceled")
)

// PaymentIntentClient is the subset of the Stripe payment intent API used
// for fiat unlocks. *paymentintent.Client satisfies it.
type PaymentIntentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type unlockPricing interface {
	GetRecord(ctx context.Context, bookID string, chapterNumber int) (*models.ChapterRecord, error)
	RecordUnlockRevenue(ctx context.Context, bookID string, chapterNumber int, amount decimal.Decimal) (*models.ChapterRecord, error)
}

// PaymentService sells chapter unlocks for fiat through Stripe. A confirmed
// payment is written to the unlock ledger with proof "stripe:<intent id>".
type PaymentService struct {
	intents      PaymentIntentClient
	unlocks      *UnlockService
	chapters     unlockPricing
	chain        ChainRegistry
	economics    *EconomicsCalculator
	currency     string
	centsPerUnit int64
	log          *logrus.Logger
}

type CreateUnlockIntentRequest struct {
	BookID        string `json:"book_id" binding:"required"`
	ChapterNumber int    `json:"chapter_number" binding:"required,min=1"`
}

type UnlockIntentResponse struct {
	PaymentIntentID string              `json:"payment_intent_id"`
	ClientSecret    string              `json:"client_secret"`
	Status          string              `json:"status"`
	AmountCents     int64               `json:"amount_cents"`
	Currency        string              `json:"currency"`
	Split           models.RevenueSplit `json:"split"`
}

type ConfirmUnlockRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

type ConfirmUnlockResponse struct {
	Status   string               `json:"status"`
	Unlocked bool                 `json:"unlocked"`
	Created  bool                 `json:"created"`
	Unlock   *models.UnlockRecord `json:"unlock,omitempty"`
}

func NewStripeIntentClient(secretKey string) *paymentintent.Client {
	return &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

func NewPaymentService(cfg config.PaymentConfig, intents PaymentIntentClient, unlocks *UnlockService, chapters unlockPricing, chain ChainRegistry, economics *EconomicsCalculator, log *logrus.Logger) *PaymentService {
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	centsPerUnit := cfg.CentsPerUnit
	if centsPerUnit <= 0 {
		centsPerUnit = 1
	}
	return &PaymentService{
		intents:      intents,
		unlocks:      unlocks,
		chapters:     chapters,
		chain:        chain,
		economics:    economics,
		currency:     currency,
		centsPerUnit: centsPerUnit,
		log:          log,
	}
}

func (s *PaymentService) CreateUnlockIntent(ctx context.Context, userAddress string, req CreateUnlockIntentRequest) (*UnlockIntentResponse, error) {
	if models.IsFreeChapter(req.ChapterNumber) {
		return nil, utils.NewValidationError("chapter_number", "free chapters do not need to be unlocked")
	}
	unlocked, err := s.unlocks.HasUnlocked(ctx, userAddress, req.BookID, req.ChapterNumber)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return nil, ErrAlreadyUnlocked
	}

	rec, err := s.chapters.GetRecord(ctx, req.BookID, req.ChapterNumber)
	if err != nil {
		return nil, err
	}
	price := rec.Economics.CurrentUnlockPrice
	if !price.IsPositive() {
		return nil, utils.NewValidationError("chapter_number", "chapter has no unlock price")
	}

	book, err := s.chain.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if !book.IsActive {
		return nil, utils.NewValidationError("book_id", BookNotRegisteredMessage)
	}
	split := s.economics.Split(price, book.HasCurator())

	amountCents := price.Mul(decimal.NewFromInt(s.centsPerUnit)).Ceil().IntPart()
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(s.currency),
	}
	params.AddMetadata("user_address", models.NormalizeAddress(userAddress))
	params.AddMetadata("book_id", req.BookID)
	params.AddMetadata("chapter_number", strconv.Itoa(req.ChapterNumber))
	params.AddMetadata("price", price.String())
	params.AddMetadata("author_share", split.Author.String())
	params.AddMetadata("curator_share", split.Curator.String())
	params.AddMetadata("platform_share", split.Platform.String())

	pi, err := s.intents.New(params)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("create_failed").Inc()
		return nil, utils.NewExternalDependencyError("stripe", "create payment intent", err)
	}
	metrics.PaymentIntentsTotal.WithLabelValues("created").Inc()

	return &UnlockIntentResponse{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Status:          string(pi.Status),
		AmountCents:     amountCents,
		Currency:        s.currency,
		Split:           split,
	}, nil
}

// ConfirmUnlock checks the intent with Stripe and, once it has succeeded,
// records the unlock. Confirming twice records one unlock and counts the
// revenue once.
func (s *PaymentService) ConfirmUnlock(ctx context.Context, userAddress string, req ConfirmUnlockRequest) (*ConfirmUnlockResponse, error) {
	pi, err := s.intents.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, utils.NewExternalDependencyError("stripe", "get payment intent", err)
	}

	owner := pi.Metadata["user_address"]
	if owner == "" || owner != models.NormalizeAddress(userAddress) {
		return nil, &utils.UnauthorizedError{Action: "confirm payment", Reason: "payment intent belongs to another wallet"}
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
	case stripe.PaymentIntentStatusCanceled:
		metrics.PaymentIntentsTotal.WithLabelValues("canceled").Inc()
		return nil, ErrPaymentCanceled
	default:
		return &ConfirmUnlockResponse{Status: string(pi.Status)}, nil
	}

	bookID := pi.Metadata["book_id"]
	chapter, err := strconv.Atoi(pi.Metadata["chapter_number"])
	if err != nil {
		return nil, fmt.Errorf("payment intent %s has a malformed chapter number: %w", pi.ID, err)
	}

	record, created, err := s.unlocks.Record(ctx, userAddress, bookID, chapter, "stripe:"+pi.ID, false)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.PaymentIntentsTotal.WithLabelValues("succeeded").Inc()
		price, err := decimal.NewFromString(pi.Metadata["price"])
		if err != nil {
			price = decimal.NewFromInt(pi.Amount).Div(decimal.NewFromInt(s.centsPerUnit))
		}
		if _, err := s.chapters.RecordUnlockRevenue(ctx, bookID, chapter, price); err != nil {
			// Log error but don't fail the payment confirmation
			s.log.WithError(err).WithFields(logrus.Fields{
				"payment_intent": pi.ID,
				"book_id":        bookID,
				"chapter":        chapter,
			}).Error("Failed to record unlock revenue")
		}
	}

	return &ConfirmUnlockResponse{
		Status:   string(pi.Status),
		Unlocked: true,
		Created:  created,
		Unlock:   record,
	}, nil
}
