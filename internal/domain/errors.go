package domain

import (
	"errors"
	"fmt"
)

// Repository sentinels. Business rejections derived from these become
// typed outcomes; they never propagate as errors past the processor.
var (
	ErrCardNotFound        = errors.New("card not found")
	ErrDuplicateCard       = errors.New("card already exists")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrDuplicateSettlement = errors.New("settlement already recorded")
)

// InsufficientFundsError carries the unchanged balance so rejections can
// report it to the caller.
type InsufficientFundsError struct {
	Balance int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d", e.Balance)
}

func IsInsufficientFunds(err error) (*InsufficientFundsError, bool) {
	var ife *InsufficientFundsError
	ok := errors.As(err, &ife)
	return ife, ok
}
