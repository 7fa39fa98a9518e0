package pricing

import (
	"fmt"

	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

// Condition names the rule a coupon failed to satisfy.
type Condition string

const (
	ConditionInactive      Condition = "inactive"
	ConditionNotStarted    Condition = "not_started"
	ConditionExpired       Condition = "expired"
	ConditionMinOrderValue Condition = "min_order_value"
	ConditionScopeMismatch Condition = "scope_mismatch"
	// ConditionNotClaimed applies to shop coupons the user never collected.
	ConditionNotClaimed Condition = "not_claimed"
)

func (c Condition) String() string {
	return string(c)
}

// StockShortfall identifies a line whose quantity exceeds the variant stock.
type StockShortfall struct {
	LineID    uint `json:"line_id"`
	ProductID uint `json:"product_id"`
	VariantID uint `json:"variant_id"`
	Requested int  `json:"requested"`
	Available int  `json:"available"`
}

func variantNotFound(productID, variantID uint) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").WithDetails(map[string]any{
		"product_id": productID,
		"variant_id": variantID,
	})
}

func noPurchasableUnit(productID uint) error {
	return pkgerrors.New(pkgerrors.CodeNoPurchasableUnit, fmt.Sprintf("product %d has no variants", productID)).WithDetails(map[string]any{
		"product_id": productID,
	})
}

// CouponNotApplicable builds the typed error for a coupon that failed the
// given condition.
func CouponNotApplicable(code string, condition Condition) error {
	return pkgerrors.New(pkgerrors.CodeCouponNotApplicable, fmt.Sprintf("coupon %s not applicable: %s", code, condition)).WithDetails(map[string]any{
		"coupon_code": code,
		"condition":   condition.String(),
	})
}

// ConditionOf extracts the failed condition from a CouponNotApplicable error.
func ConditionOf(err error) (Condition, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCouponNotApplicable {
		return "", false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := details["condition"].(string)
	if !ok {
		return "", false
	}
	return Condition(value), true
}

// InsufficientStock builds the typed error listing every offending line.
func InsufficientStock(shortfalls []StockShortfall) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("%d line(s) exceed available stock", len(shortfalls))).WithDetails(map[string]any{
		"lines": shortfalls,
	})
}

// CouponAlreadyUsed builds the typed error for a repeat redemption.
func CouponAlreadyUsed(code string) error {
	return pkgerrors.New(pkgerrors.CodeCouponAlreadyUsed, fmt.Sprintf("coupon %s already used", code)).WithDetails(map[string]any{
		"coupon_code": code,
	})
}

func invalidInput(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}
