// Package labels sells shipping labels against the account balance.
package labels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labeldesk/backend/internal/metrics"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/security"
	"github.com/labeldesk/backend/internal/tracking"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("label not found")
	ErrStatusConflict     = errors.New("label is not in the expected status")
	ErrUnsupportedCarrier = errors.New("unsupported carrier")
)

// Ledger reasons for label charges.
const (
	ReasonPurchase      = "scan_label"
	ReasonRefund        = "refund:label"
	ReasonRefundOnError = "refund:label_failed"
)

var carriers = map[string]string{
	"ups":   "1Z",
	"usps":  "94",
	"fedex": "FX",
	"dhl":   "JD",
}

// Ledger is the subset of the ledger service used for label charges.
type Ledger interface {
	DebitForOrder(ctx context.Context, accountID, orderID string, amount decimal.Decimal, reason string) (decimal.Decimal, error)
	CreditForOrder(ctx context.Context, accountID, orderID string, amount decimal.Decimal, reason string) (decimal.Decimal, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job tracking.Job) error
}

type Service struct {
	store  Store
	ledger Ledger
	queue  Enqueuer
	price  decimal.Decimal
	logger *slog.Logger
}

func NewService(store Store, ledger Ledger, queue Enqueuer, price decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{store: store, ledger: ledger, queue: queue, price: price, logger: logger}
}

func (s *Service) Price() decimal.Decimal {
	return s.price
}

// Purchase charges the label price and stores the label. Tracking activation
// is queued; a queueing failure leaves the label pending.
func (s *Service) Purchase(ctx context.Context, accountID, carrier string) (*models.Label, decimal.Decimal, error) {
	carrier = strings.ToLower(strings.TrimSpace(carrier))
	prefix, ok := carriers[carrier]
	if !ok {
		return nil, decimal.Zero, ErrUnsupportedCarrier
	}

	digits, err := security.NumericCode(16)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("generate tracking number: %w", err)
	}

	now := time.Now().UTC()
	label := &models.Label{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Carrier:        carrier,
		TrackingNumber: prefix + digits,
		Price:          s.price,
		Status:         models.LabelStatusPurchased,
		TrackingStatus: models.TrackingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	balance, err := s.ledger.DebitForOrder(ctx, accountID, label.ID, s.price, ReasonPurchase)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := s.store.Create(ctx, label); err != nil {
		if _, refundErr := s.ledger.CreditForOrder(ctx, accountID, label.ID, s.price, ReasonRefundOnError); refundErr != nil {
			s.logger.Error("label refund after failed insert did not apply",
				"account_id", accountID, "label_id", label.ID, "error", refundErr)
		}
		return nil, decimal.Zero, fmt.Errorf("store label: %w", err)
	}

	metrics.RecordLabelPurchase(carrier)

	job := tracking.Job{LabelID: label.ID, AccountID: accountID, Carrier: carrier, TrackingNumber: label.TrackingNumber}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("failed to queue tracking activation", "label_id", label.ID, "error", err)
	}

	s.logger.Info("label purchased", "account_id", accountID, "label_id", label.ID, "carrier", carrier, "balance", balance.StringFixed(2))
	return label, balance, nil
}

// Void cancels a purchased label and refunds its price.
func (s *Service) Void(ctx context.Context, accountID, labelID string) (*models.Label, decimal.Decimal, error) {
	label, err := s.store.FindByID(ctx, accountID, labelID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	now := time.Now().UTC()
	if err := s.store.SetStatus(ctx, accountID, labelID, models.LabelStatusPurchased, models.LabelStatusVoided, now); err != nil {
		return nil, decimal.Zero, err
	}

	balance, err := s.ledger.CreditForOrder(ctx, accountID, labelID, label.Price, ReasonRefund)
	if err != nil {
		if restoreErr := s.store.SetStatus(ctx, accountID, labelID, models.LabelStatusVoided, models.LabelStatusPurchased, time.Now().UTC()); restoreErr != nil {
			s.logger.Error("failed to restore label after refund error", "label_id", labelID, "error", restoreErr)
		}
		return nil, decimal.Zero, fmt.Errorf("refund label: %w", err)
	}

	label.Status = models.LabelStatusVoided
	label.UpdatedAt = now
	s.logger.Info("label voided", "account_id", accountID, "label_id", labelID, "balance", balance.StringFixed(2))
	return label, balance, nil
}

func (s *Service) Get(ctx context.Context, accountID, labelID string) (*models.Label, error) {
	return s.store.FindByID(ctx, accountID, labelID)
}

func (s *Service) List(ctx context.Context, accountID string, limit, offset int) ([]models.Label, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, accountID, limit, offset)
}

func (s *Service) QR(ctx context.Context, accountID, labelID string) ([]byte, error) {
	label, err := s.store.FindByID(ctx, accountID, labelID)
	if err != nil {
		return nil, err
	}
	return RenderQR(label)
}
