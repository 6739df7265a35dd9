package orders

import (
	"caskmarket-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentPercentage is 100 when every line is held in a bonded warehouse and
// 20 (deposit) otherwise.
func PaymentPercentage(types ...domain.InventoryType) int {
	if len(types) == 0 {
		return domain.PaymentPercentageDeposit
	}
	for _, t := range types {
		if t != domain.InventoryBondedWarehouse {
			return domain.PaymentPercentageDeposit
		}
	}
	return domain.PaymentPercentageFull
}

type Totals struct {
	Subtotal         decimal.Decimal
	PlatformFeeTotal decimal.Decimal
	Total            decimal.Decimal
	PaymentAmount    decimal.Decimal
	RemainingBalance decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals prices line items. The platform fee is added on top of the
// goods subtotal and the payment percentage applies to the combined total.
func ComputeTotals(items []domain.OrderItem, pct int) Totals {
	subtotal := decimal.Zero
	fees := decimal.Zero
	for _, it := range items {
		q := decimal.NewFromInt(int64(it.Quantity))
		subtotal = subtotal.Add(it.UnitPrice.Mul(q))
		fees = fees.Add(it.FeePerUnit.Mul(q))
	}
	subtotal = subtotal.Round(2)
	fees = fees.Round(2)
	total := subtotal.Add(fees)
	payment := total.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
	return Totals{
		Subtotal:         subtotal,
		PlatformFeeTotal: fees,
		Total:            total,
		PaymentAmount:    payment,
		RemainingBalance: total.Sub(payment),
	}
}

func (t Totals) apply(o *domain.Order) {
	o.Subtotal = t.Subtotal
	o.PlatformFeeTotal = t.PlatformFeeTotal
	o.Total = t.Total
	o.PaymentAmount = t.PaymentAmount
	o.RemainingBalance = t.RemainingBalance
}
