// Package memory provides a map-backed implementation of the ledger and
// settlement stores. It backs the "memory" database backend and the unit
// tests; semantics mirror the postgres implementation.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/domain"
)

type Store struct {
	mu          sync.Mutex
	cards       map[string]*domain.Card
	byNumber    map[string]string
	settlements map[string]*domain.Settlement
}

func NewStore() *Store {
	return &Store{
		cards:       make(map[string]*domain.Card),
		byNumber:    make(map[string]string),
		settlements: make(map[string]*domain.Settlement),
	}
}

var (
	_ application.CardStore       = (*Store)(nil)
	_ application.SettlementStore = (*Store)(nil)
	_ application.UnitOfWork      = (*Store)(nil)
)

// WithinTx serializes the whole unit against every other store access
// and restores a snapshot when fn fails, so a rolled-back unit leaves
// neither a debit nor a settlement record behind.
func (s *Store) WithinTx(ctx context.Context, fn func(cards application.CardStore, settlements application.SettlementStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make(map[string]*domain.Card, len(s.cards))
	for id, c := range s.cards {
		copied := *c
		cards[id] = &copied
	}
	byNumber := make(map[string]string, len(s.byNumber))
	for n, id := range s.byNumber {
		byNumber[n] = id
	}
	settlements := make(map[string]*domain.Settlement, len(s.settlements))
	for id, st := range s.settlements {
		copied := *st
		settlements[id] = &copied
	}

	tx := &txView{s: s}
	if err := fn(tx, tx); err != nil {
		s.cards = cards
		s.byNumber = byNumber
		s.settlements = settlements
		return err
	}
	return nil
}

func (s *Store) Create(ctx context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(card)
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByIDLocked(id)
}

func (s *Store) FindByNumber(ctx context.Context, number string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNumber[number]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return s.findByIDLocked(id)
}

func (s *Store) List(ctx context.Context) ([]*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]*domain.Card, 0, len(s.cards))
	for _, c := range s.cards {
		copied := *c
		cards = append(cards, &copied)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return cards, nil
}

func (s *Store) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitLocked(id, amount)
}

func (s *Store) Record(ctx context.Context, settlement *domain.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(settlement)
}

func (s *Store) FindByPurchaseID(ctx context.Context, purchaseID string) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByPurchaseIDLocked(purchaseID)
}

func (s *Store) createLocked(card *domain.Card) error {
	if _, ok := s.byNumber[card.Number]; ok {
		return domain.ErrDuplicateCard
	}
	copied := *card
	s.cards[card.ID] = &copied
	s.byNumber[card.Number] = card.ID
	return nil
}

func (s *Store) findByIDLocked(id string) (*domain.Card, error) {
	card, ok := s.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	copied := *card
	return &copied, nil
}

// debitLocked is the check-and-debit serialization point for the memory
// backend; the store mutex spans check and write.
func (s *Store) debitLocked(id string, amount int64) (int64, error) {
	card, ok := s.cards[id]
	if !ok {
		return 0, domain.ErrCardNotFound
	}
	if card.Balance < amount {
		return 0, &domain.InsufficientFundsError{Balance: card.Balance}
	}
	card.Balance -= amount
	return card.Balance, nil
}

func (s *Store) recordLocked(settlement *domain.Settlement) error {
	if _, ok := s.settlements[settlement.PurchaseID]; ok {
		return domain.ErrDuplicateSettlement
	}
	copied := *settlement
	s.settlements[settlement.PurchaseID] = &copied
	return nil
}

func (s *Store) findByPurchaseIDLocked(purchaseID string) (*domain.Settlement, error) {
	settlement, ok := s.settlements[purchaseID]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	copied := *settlement
	return &copied, nil
}

// txView exposes the store inside WithinTx, where the mutex is already
// held by the unit of work.
type txView struct {
	s *Store
}

func (t *txView) Create(ctx context.Context, card *domain.Card) error {
	return t.s.createLocked(card)
}

func (t *txView) FindByID(ctx context.Context, id string) (*domain.Card, error) {
	return t.s.findByIDLocked(id)
}

func (t *txView) FindByNumber(ctx context.Context, number string) (*domain.Card, error) {
	id, ok := t.s.byNumber[number]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return t.s.findByIDLocked(id)
}

func (t *txView) List(ctx context.Context) ([]*domain.Card, error) {
	cards := make([]*domain.Card, 0, len(t.s.cards))
	for _, c := range t.s.cards {
		copied := *c
		cards = append(cards, &copied)
	}
	return cards, nil
}

func (t *txView) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	return t.s.debitLocked(id, amount)
}

func (t *txView) Record(ctx context.Context, settlement *domain.Settlement) error {
	return t.s.recordLocked(settlement)
}

func (t *txView) FindByPurchaseID(ctx context.Context, purchaseID string) (*domain.Settlement, error) {
	return t.s.findByPurchaseIDLocked(purchaseID)
}
