package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-app/tradepost-backend/internal/audit"
	"github.com/tradepost-app/tradepost-backend/internal/orders"
	"github.com/tradepost-app/tradepost-backend/pkg/config"
	"github.com/tradepost-app/tradepost-backend/pkg/db/models"
	"github.com/tradepost-app/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/outbox"
	"github.com/tradepost-app/tradepost-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Disburser moves approved payout money to the seller's destination.
type Disburser interface {
	Send(ctx context.Context, payout *models.SellerPayout) error
}

// Service computes seller balances on demand and runs the payout workflow.
type Service interface {
	Balance(ctx context.Context, sellerID uuid.UUID) (*BalanceSummary, error)
	RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.SellerPayout, error)
	ProcessPayout(ctx context.Context, input ProcessPayoutInput) (*models.SellerPayout, error)
	GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.SellerPayout, error)
	ListPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error)
}

// BalanceSummary is the seller's settlement position derived from delivered
// order items and recorded payout draws. Nothing here is stored; every field
// is recomputed on each call.
type BalanceSummary struct {
	SellerID       uuid.UUID       `json:"seller_id"`
	Currency       string          `json:"currency"`
	GrossEarnings  decimal.Decimal `json:"gross_earnings"`
	PlatformFees   decimal.Decimal `json:"platform_fees"`
	NetEarnings    decimal.Decimal `json:"net_earnings"`
	PendingPayouts decimal.Decimal `json:"pending_payouts"`
	PaidPayouts    decimal.Decimal `json:"paid_payouts"`
	Available      decimal.Decimal `json:"available"`
}

// RequestPayoutInput opens a payout draw against the seller's available balance.
type RequestPayoutInput struct {
	SellerID    uuid.UUID
	Amount      decimal.Decimal
	Destination string
	Actor       orders.ActorContext
}

// ProcessPayoutInput settles a pending payout through the disburser.
type ProcessPayoutInput struct {
	PayoutID uuid.UUID
	Actor    orders.ActorContext
}

// PayoutEvent is the outbox payload for payout lifecycle changes.
type PayoutEvent struct {
	PayoutID  uuid.UUID          `json:"payout_id"`
	SellerID  uuid.UUID          `json:"seller_id"`
	NetAmount decimal.Decimal    `json:"net_amount"`
	Status    enums.PayoutStatus `json:"status"`
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	audit     audit.Service
	disburser Disburser
	cfg       config.SettlementConfig
}

// NewService builds a settlement service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, auditSvc audit.Service, disburser Disburser, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if disburser == nil {
		return nil, fmt.Errorf("disburser required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		audit:     auditSvc,
		disburser: disburser,
		cfg:       cfg,
	}, nil
}

func (s *service) Balance(ctx context.Context, sellerID uuid.UUID) (*BalanceSummary, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return s.balance(ctx, s.repo, sellerID)
}

// balance recomputes the position from scratch: delivered line items give the
// gross, the configured rate gives the fee, and payout draws that count
// against the balance are subtracted from the net.
func (s *service) balance(ctx context.Context, repo Repository, sellerID uuid.UUID) (*BalanceSummary, error) {
	items, err := repo.FindDeliveredItemsBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load delivered items")
	}

	gross := decimal.Zero
	for _, item := range items {
		gross = gross.Add(item.LineTotal())
	}
	fees := gross.Mul(s.cfg.PlatformFeeRate()).Round(2)
	net := gross.Sub(fees)

	payouts, err := repo.FindPayoutsBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load payouts")
	}

	pending := decimal.Zero
	paid := decimal.Zero
	for _, payout := range payouts {
		if !payout.Status.CountsAgainstBalance() {
			continue
		}
		if payout.Status == enums.PayoutStatusCompleted {
			paid = paid.Add(payout.NetAmount)
		} else {
			pending = pending.Add(payout.NetAmount)
		}
	}

	return &BalanceSummary{
		SellerID:       sellerID,
		Currency:       s.cfg.Currency,
		GrossEarnings:  gross,
		PlatformFees:   fees,
		NetEarnings:    net,
		PendingPayouts: pending,
		PaidPayouts:    paid,
		Available:      net.Sub(pending).Sub(paid),
	}, nil
}

func (s *service) RequestPayout(ctx context.Context, input RequestPayoutInput) (*models.SellerPayout, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDestination, "payout destination required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if input.Amount.LessThan(s.cfg.MinimumPayout()) {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum,
			fmt.Sprintf("payout amount %s is below the %s minimum", input.Amount, s.cfg.MinimumPayout()))
	}

	// The requested amount is the net draw. The gross slice it settles is
	// derived so that net = gross - fee holds at the configured rate.
	gross := input.Amount.Div(decimal.NewFromInt(1).Sub(s.cfg.PlatformFeeRate())).Round(2)
	fee := gross.Sub(input.Amount)

	payout := &models.SellerPayout{
		SellerID:          input.SellerID,
		GrossAmount:       gross,
		PlatformFeeAmount: fee,
		NetAmount:         input.Amount,
		Destination:       destination,
		Status:            enums.PayoutStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		summary, err := s.balance(ctx, repo, input.SellerID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(summary.Available) {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance,
				fmt.Sprintf("payout amount %s exceeds available balance %s", input.Amount, summary.Available))
		}

		if _, err := repo.CreatePayout(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "create payout")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: PayoutEvent{
				PayoutID:  payout.ID,
				SellerID:  payout.SellerID,
				NetAmount: payout.NetAmount,
				Status:    payout.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionPayoutRequested,
		EntityType: enums.AuditEntityPayout,
		EntityID:   payout.ID,
		NewValue:   map[string]any{"status": payout.Status, "net_amount": payout.NetAmount},
	})
	return payout, nil
}

// ProcessPayout settles a pending payout. Calling it again for a completed
// payout returns the stored row unchanged, so retries after a lost response
// are safe.
func (s *service) ProcessPayout(ctx context.Context, input ProcessPayoutInput) (*models.SellerPayout, error) {
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can process payouts")
	}

	payout, err := s.repo.FindPayoutByID(ctx, input.PayoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load payout")
	}

	switch payout.Status {
	case enums.PayoutStatusCompleted:
		return payout, nil
	case enums.PayoutStatusProcessing:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payout is already being processed")
	case enums.PayoutStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "failed payouts require a new request")
	}

	// Claim the payout before calling out so a concurrent processor loses
	// cleanly instead of double-sending.
	affected, err := s.repo.UpdatePayoutStatusIf(ctx, payout.ID, enums.PayoutStatusPending, map[string]any{
		"status":     enums.PayoutStatusProcessing,
		"updated_at": time.Now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "claim payout")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payout was claimed concurrently")
	}
	payout.Status = enums.PayoutStatusProcessing

	now := time.Now()
	if sendErr := s.disburser.Send(ctx, payout); sendErr != nil {
		reason := sendErr.Error()
		if _, err := s.repo.UpdatePayoutStatusIf(ctx, payout.ID, enums.PayoutStatusProcessing, map[string]any{
			"status":         enums.PayoutStatusFailed,
			"failure_reason": reason,
			"processed_by":   input.Actor.UserID,
			"processed_at":   now,
			"updated_at":     now,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "record payout failure")
		}
		payout.Status = enums.PayoutStatusFailed
		payout.FailureReason = &reason
		return payout, pkgerrors.Wrap(pkgerrors.CodeInternal, sendErr, "payout disbursement failed")
	}

	var completed *models.SellerPayout
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.UpdatePayoutStatusIf(ctx, payout.ID, enums.PayoutStatusProcessing, map[string]any{
			"status":       enums.PayoutStatusCompleted,
			"processed_by": input.Actor.UserID,
			"processed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "complete payout")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "payout was modified concurrently")
		}

		payout.Status = enums.PayoutStatusCompleted
		payout.ProcessedBy = &input.Actor.UserID
		payout.ProcessedAt = &now
		completed = payout

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutProcessed,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: PayoutEvent{
				PayoutID:  payout.ID,
				SellerID:  payout.SellerID,
				NetAmount: payout.NetAmount,
				Status:    payout.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.Actor.UserID,
		ActorRole:  input.Actor.Role,
		Action:     enums.AuditActionPayoutProcessed,
		EntityType: enums.AuditEntityPayout,
		EntityID:   completed.ID,
		OldValue:   map[string]any{"status": enums.PayoutStatusPending},
		NewValue:   map[string]any{"status": completed.Status},
	})
	return completed, nil
}

func (s *service) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.SellerPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "load payout")
	}
	return payout, nil
}

func (s *service) ListPayouts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*PayoutList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	list, err := s.repo.ListPayoutsBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "list payouts")
	}
	return list, nil
}
