package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
	"github.com/google/uuid"
)

type RegisterCardCommand struct {
	OwnerID        string
	Kind           string
	Number         string
	InitialBalance int64
	Expiration     time.Time
}

// CardService covers card registration and queries. Balance mutation is
// not here: only the settlement pipeline debits cards.
type CardService struct {
	cards  application.CardStore
	logger *slog.Logger
}

func NewCardService(cards application.CardStore, logger *slog.Logger) *CardService {
	return &CardService{
		cards:  cards,
		logger: logger,
	}
}

func (s *CardService) Register(ctx context.Context, cmd RegisterCardCommand) (*domain.Card, error) {
	card, err := domain.NewCard(uuid.New().String(), cmd.OwnerID, cmd.Kind, cmd.Number, cmd.InitialBalance, cmd.Expiration)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, domain.ErrDuplicateCard) {
			return nil, application.NewDuplicateError(err)
		}
		return nil, application.NewInternalError(fmt.Errorf("create card: %w", err))
	}

	s.logger.Info("card registered",
		"card_id", card.ID,
		"owner_id", card.OwnerID,
		"kind", card.Kind,
		"balance", card.Balance,
	)

	return card, nil
}

func (s *CardService) List(ctx context.Context) ([]*domain.Card, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("list cards: %w", err))
	}
	return cards, nil
}

func (s *CardService) BalanceByNumber(ctx context.Context, number string) (*domain.Card, error) {
	card, err := s.cards.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrCardNotFound) {
			return nil, err
		}
		return nil, application.NewInternalError(fmt.Errorf("find card by number: %w", err))
	}
	return card, nil
}
