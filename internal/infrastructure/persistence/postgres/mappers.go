package postgres

import (
	"github.com/cardledger/payments-service/internal/domain"
)

func toDomainCard(m CardModel) *domain.Card {
	return &domain.Card{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Kind:       m.Kind,
		Number:     m.Number,
		Balance:    m.Balance,
		Expiration: m.Expiration,
		CreatedAt:  m.CreatedAt,
	}
}

func toDomainSettlement(m SettlementModel) *domain.Settlement {
	return &domain.Settlement{
		PurchaseID: m.PurchaseID,
		CardID:     m.CardID,
		Amount:     m.Amount,
		Status:     domain.SettlementStatus(m.Status),
		Message:    m.Message,
		Balance:    m.Balance,
		SettledAt:  m.SettledAt,
	}
}
