package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/cardledger/payments-service/internal/observability"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultPollTimeout  = 5 * time.Second
)

// PaymentProcessor settles purchase requests: it deduplicates by
// purchase ID, authorizes against the card ledger, debits atomically and
// publishes exactly one confirmation per terminal decision. Both ingress
// adapters (HTTP and the queue consumer) funnel into Process.
type PaymentProcessor struct {
	uow         application.UnitOfWork
	settlements application.SettlementStore
	publisher   application.ConfirmationPublisher
	metrics     *observability.Metrics
	logger      *slog.Logger

	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewPaymentProcessor(
	uow application.UnitOfWork,
	settlements application.SettlementStore,
	publisher application.ConfirmationPublisher,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *PaymentProcessor {
	return &PaymentProcessor{
		uow:          uow,
		settlements:  settlements,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
}

// Process drives one purchase request to its terminal outcome. Business
// rejections come back as outcomes, never as errors; a non-nil error
// means infrastructure failed and the same request may be retried.
func (p *PaymentProcessor) Process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, error) {
	if req.PurchaseID == "" {
		return domain.SettlementOutcome{}, application.NewInvalidInputError(errors.New("purchase ID is required"))
	}

	start := time.Now()
	outcome, recalled, err := p.process(ctx, req)

	status := "error"
	switch {
	case err != nil:
	case recalled:
		status = "recalled"
	default:
		status = string(outcome.Status)
	}
	p.metrics.ObserveProcessed(status, time.Since(start))

	return outcome, err
}

func (p *PaymentProcessor) process(ctx context.Context, req domain.PaymentRequest) (domain.SettlementOutcome, bool, error) {
	prior, err := p.settlements.FindByPurchaseID(ctx, req.PurchaseID)
	if err == nil {
		outcome, err := p.recall(ctx, prior)
		return outcome, true, err
	}
	if !errors.Is(err, domain.ErrSettlementNotFound) {
		return domain.SettlementOutcome{}, false, application.NewUnavailableError(fmt.Errorf("look up settlement %s: %w", req.PurchaseID, err))
	}

	settlement, err := p.settle(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSettlement) {
			// Lost the race on a fresh purchase ID; converge on the
			// winner's recorded outcome.
			outcome, err := p.awaitRecorded(ctx, req.PurchaseID)
			return outcome, true, err
		}
		return domain.SettlementOutcome{}, false, application.NewUnavailableError(fmt.Errorf("settle purchase %s: %w", req.PurchaseID, err))
	}

	if err := p.publish(ctx, settlement); err != nil {
		// The settlement is committed; a retry of the same purchase ID
		// recalls it and republishes the identical confirmation.
		return domain.SettlementOutcome{}, false, err
	}

	p.logger.Info("purchase settled",
		"purchase_id", req.PurchaseID,
		"card_id", req.CardID,
		"amount", req.Amount,
		"status", settlement.Status,
		"message", settlement.Message,
	)

	return settlement.Outcome(), false, nil
}

// settle runs the authorization decision, the ledger debit and the
// settlement record as one atomic unit. A rollback therefore never
// leaves a debit without its settlement record or vice versa.
func (p *PaymentProcessor) settle(ctx context.Context, req domain.PaymentRequest) (*domain.Settlement, error) {
	var settlement *domain.Settlement

	err := p.uow.WithinTx(ctx, func(cards application.CardStore, settlements application.SettlementStore) error {
		outcome, err := p.authorize(ctx, cards, req)
		if err != nil {
			return err
		}

		settlement = domain.NewSettlement(req, outcome)
		return settlements.Record(ctx, settlement)
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// authorize computes the terminal decision. Checks run in order and the
// first failing one wins; the debit itself re-validates sufficiency at
// the point of mutation.
func (p *PaymentProcessor) authorize(ctx context.Context, cards application.CardStore, req domain.PaymentRequest) (domain.SettlementOutcome, error) {
	if req.Amount <= 0 {
		return domain.NewRejectedOutcome(req.PurchaseID, domain.MsgInvalidAmount), nil
	}

	newBalance, err := cards.Debit(ctx, req.CardID, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrCardNotFound) {
			return domain.NewRejectedOutcome(req.PurchaseID, domain.MsgCardNotFound), nil
		}
		if ife, ok := domain.IsInsufficientFunds(err); ok {
			return domain.NewRejectedOutcomeWithBalance(req.PurchaseID, domain.MsgInsufficientFunds, ife.Balance), nil
		}
		return domain.SettlementOutcome{}, err
	}

	return domain.NewApprovedOutcome(req.PurchaseID, newBalance), nil
}

// recall short-circuits an already-settled purchase: the ledger is not
// touched again, the stored confirmation is re-emitted as is.
func (p *PaymentProcessor) recall(ctx context.Context, prior *domain.Settlement) (domain.SettlementOutcome, error) {
	if err := p.publish(ctx, prior); err != nil {
		return domain.SettlementOutcome{}, err
	}

	p.logger.Info("purchase already settled, confirmation republished",
		"purchase_id", prior.PurchaseID,
		"status", prior.Status,
	)

	return prior.Outcome(), nil
}

// awaitRecorded polls for the outcome a concurrent attempt is writing.
func (p *PaymentProcessor) awaitRecorded(ctx context.Context, purchaseID string) (domain.SettlementOutcome, error) {
	deadline := time.NewTimer(p.pollTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.pollInterval)
	defer tick.Stop()

	for {
		prior, err := p.settlements.FindByPurchaseID(ctx, purchaseID)
		if err == nil {
			return p.recall(ctx, prior)
		}
		if !errors.Is(err, domain.ErrSettlementNotFound) {
			return domain.SettlementOutcome{}, application.NewUnavailableError(fmt.Errorf("poll settlement %s: %w", purchaseID, err))
		}

		select {
		case <-ctx.Done():
			return domain.SettlementOutcome{}, application.NewTimeoutError(ctx.Err())
		case <-deadline.C:
			return domain.SettlementOutcome{}, application.NewTimeoutError(fmt.Errorf("settlement %s not recorded after %s", purchaseID, p.pollTimeout))
		case <-tick.C:
		}
	}
}

func (p *PaymentProcessor) publish(ctx context.Context, settlement *domain.Settlement) error {
	if err := p.publisher.Publish(ctx, settlement.Confirmation()); err != nil {
		return application.NewUnavailableError(fmt.Errorf("publish confirmation for %s: %w", settlement.PurchaseID, err))
	}
	return nil
}
