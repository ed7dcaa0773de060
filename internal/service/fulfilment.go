package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
)

// redeemPayment is the redeem state after a payment is applied.
type redeemPayment struct {
	AmountPaid decimal.Decimal
	AmountHold decimal.Decimal
	Status     models.RedeemStatus
}

// applyRedeemPayment moves amount from the hold to the paid total. The redeem
// completes exactly when the paid total reaches the requested total.
func applyRedeemPayment(red *models.Redeem, amount decimal.Decimal) (redeemPayment, error) {
	if !amount.IsPositive() {
		return redeemPayment{}, appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}
	paid := red.AmountPaid.Add(amount)
	hold := red.AmountHold.Sub(amount)
	if hold.IsNegative() {
		return redeemPayment{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("payment of $%s exceeds the $%s on hold", amount.StringFixed(2), red.AmountHold.StringFixed(2)))
	}
	if paid.GreaterThan(red.TotalAmount) {
		return redeemPayment{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("payment of $%s exceeds the unpaid $%s", amount.StringFixed(2), red.TotalAmount.Sub(red.AmountPaid).StringFixed(2)))
	}

	status := models.RedeemQueuedPartiallyPaid
	if paid.Equal(red.TotalAmount) {
		status = models.RedeemCompleted
	}
	if err := RedeemMachine.Check(red.Status, models.RedeemActionPay, status); err != nil {
		return redeemPayment{}, err
	}
	return redeemPayment{AmountPaid: paid, AmountHold: hold, Status: status}, nil
}
