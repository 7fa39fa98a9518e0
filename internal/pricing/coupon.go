package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
)

// CouponScope is either platform-wide or bound to a single shop.
type CouponScope struct {
	shopID uint
	shop   bool
}

func PlatformScope() CouponScope {
	return CouponScope{}
}

func ShopScope(shopID uint) CouponScope {
	return CouponScope{shopID: shopID, shop: true}
}

func (s CouponScope) IsPlatform() bool {
	return !s.shop
}

// ShopID returns the scoped shop and false for platform coupons.
func (s CouponScope) ShopID() (uint, bool) {
	return s.shopID, s.shop
}

// Covers reports whether a line from shopID counts toward the coupon.
func (s CouponScope) Covers(shopID uint) bool {
	return !s.shop || s.shopID == shopID
}

func (s CouponScope) String() string {
	if s.shop {
		return "shop"
	}
	return "platform"
}

// Coupon is the pricing view of a coupon record.
type Coupon struct {
	ID                uint
	Code              string
	Type              enums.CouponType
	Value             decimal.Decimal
	MinOrderValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	Status            enums.CouponStatus
	Scope             CouponScope
}

func CouponFromModel(m models.Coupon) Coupon {
	scope := PlatformScope()
	if m.ShopID != nil {
		scope = ShopScope(*m.ShopID)
	}
	return Coupon{
		ID:                m.ID,
		Code:              m.Code,
		Type:              m.Type,
		Value:             m.Value,
		MinOrderValue:     m.MinOrderValue,
		MaxDiscountAmount: m.MaxDiscountAmount,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		Status:            m.Status,
		Scope:             scope,
	}
}

// Line is the minimal line view used to scope a coupon subtotal.
type Line struct {
	ShopID uint
	Total  decimal.Decimal
}

// EligibleSubtotal sums the totals of the lines the scope covers.
func EligibleSubtotal(scope CouponScope, lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if scope.Covers(l.ShopID) {
			total = total.Add(l.Total)
		}
	}
	return total
}

func coversAny(scope CouponScope, lines []Line) bool {
	for _, l := range lines {
		if scope.Covers(l.ShopID) {
			return true
		}
	}
	return false
}

// ValidateCoupon checks status, minimum order value and then the validity
// window, so the clock is the last gate before the discount is applied. The
// window is inclusive on both ends.
func ValidateCoupon(coupon Coupon, subtotal decimal.Decimal, now time.Time) error {
	if coupon.Status != enums.CouponStatusActive {
		return CouponNotApplicable(coupon.Code, ConditionInactive)
	}
	if subtotal.LessThan(coupon.MinOrderValue) {
		return CouponNotApplicable(coupon.Code, ConditionMinOrderValue)
	}
	if now.Before(coupon.StartDate) {
		return CouponNotApplicable(coupon.Code, ConditionNotStarted)
	}
	if now.After(coupon.EndDate) {
		return CouponNotApplicable(coupon.Code, ConditionExpired)
	}
	return nil
}

// CouponAmount computes the discount of an already accepted coupon: the raw
// percentage or fixed amount, clamped by the cap and by the subtotal, never
// negative.
func CouponAmount(coupon Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.IsNegative() {
		return decimal.Zero, invalidInput("subtotal must not be negative")
	}

	var raw decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		if coupon.Value.IsNegative() || coupon.Value.GreaterThan(hundred) {
			return decimal.Zero, invalidInput("coupon percentage must be between 0 and 100")
		}
		raw = subtotal.Mul(coupon.Value).Div(hundred)
	case enums.CouponTypeFixed:
		raw = coupon.Value
	default:
		return decimal.Zero, invalidInput("unknown coupon type")
	}

	discount := Round(raw)
	if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
		discount = *coupon.MaxDiscountAmount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, nil
}

// ComputeCouponDiscount validates the coupon against subtotal at now and
// returns the discount amount. It has no side effects.
func ComputeCouponDiscount(coupon Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := ValidateCoupon(coupon, subtotal, now); err != nil {
		return decimal.Zero, err
	}
	return CouponAmount(coupon, subtotal)
}

// Evaluation is the outcome of applying a coupon to a set of lines.
type Evaluation struct {
	EligibleSubtotal decimal.Decimal
	Discount         decimal.Decimal
}

// EvaluateCoupon restricts the subtotal to the coupon scope and computes the
// discount. A shop coupon with no line from its shop fails with scope_mismatch.
func EvaluateCoupon(coupon Coupon, lines []Line, now time.Time) (Evaluation, error) {
	if !coupon.Scope.IsPlatform() && !coversAny(coupon.Scope, lines) {
		return Evaluation{}, CouponNotApplicable(coupon.Code, ConditionScopeMismatch)
	}
	eligible := EligibleSubtotal(coupon.Scope, lines)
	discount, err := ComputeCouponDiscount(coupon, eligible, now)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{EligibleSubtotal: eligible, Discount: discount}, nil
}

// TermsOf captures the parts of coupon that price an order, for storage next
// to the discount it produced.
func TermsOf(coupon Coupon) models.CouponTerms {
	couponType := coupon.Type
	value := coupon.Value
	terms := models.CouponTerms{Type: &couponType, Value: &value}
	if coupon.MaxDiscountAmount != nil {
		limit := *coupon.MaxDiscountAmount
		terms.MaxDiscount = &limit
	}
	return terms
}

// RedeemedAmount re-measures a coupon that was already redeemed against a new
// subtotal using the stored terms. Rows without terms keep the stored discount,
// clamped to the subtotal.
func RedeemedAmount(terms models.CouponTerms, stored, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if terms.Type == nil || terms.Value == nil {
		if stored.IsNegative() {
			return decimal.Zero, nil
		}
		return decimal.Min(stored, subtotal), nil
	}
	return CouponAmount(Coupon{
		Type:              *terms.Type,
		Value:             *terms.Value,
		MaxDiscountAmount: terms.MaxDiscount,
	}, subtotal)
}
