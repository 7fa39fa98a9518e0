package pricing

import (
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
)

// Round rounds a money amount half-up to two decimal places. Amounts are
// non-negative so rounding away from zero is half-up.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}

// DiscountMultiplier returns 1 - percent/100 for a percentage in [0, 100].
func DiscountMultiplier(percent decimal.Decimal) (decimal.Decimal, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, invalidInput("discount percent must be between 0 and 100")
	}
	return decimal.NewFromInt(1).Sub(percent.Div(hundred)), nil
}

// ComputeLineTotal returns round(qty * unitPrice * (1 - discount/100), 2).
func ComputeLineTotal(qty int, unitPrice, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if qty < 1 {
		return decimal.Zero, invalidInput("quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, invalidInput("unit price must not be negative")
	}
	multiplier, err := DiscountMultiplier(discountPercent)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(decimal.NewFromInt(int64(qty)).Mul(unitPrice).Mul(multiplier)), nil
}

// Sum adds the given amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ContainerTotal folds line totals into sum + shipping - coupon, floored at 0.
func ContainerTotal(lineTotals []decimal.Decimal, shippingFee, couponDiscount decimal.Decimal) decimal.Decimal {
	total := Sum(lineTotals).Add(shippingFee).Sub(couponDiscount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return Round(total)
}
