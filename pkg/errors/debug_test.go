package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpIncludesTypedErrorAndChain(t *testing.T) {
	details := map[string]any{"condition": "expired"}
	err := fmt.Errorf("apply coupon: %w", New(CodeCouponNotApplicable, "coupon expired").WithDetails(details))

	d := Dump(err)
	assert.Equal(t, CodeCouponNotApplicable, d.Code)
	assert.Equal(t, details, d.Details)
	require.Len(t, d.Chain, 2)
	assert.Contains(t, d.TopMessage, "apply coupon")
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_user_coupons_user_coupon", TableName: "user_coupons"}
	d := Dump(Wrap(CodeConflict, pgxErr, "claim coupon"))
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "ux_user_coupons_user_coupon", d.PGConstraint)
	assert.Equal(t, "user_coupons", d.PGTable)

	pqErr := &pq.Error{Code: "23514", Constraint: "ck_product_variants_stock"}
	d = Dump(fmt.Errorf("decrement stock: %w", pqErr))
	assert.Equal(t, "23514", d.PGCode)
	assert.Equal(t, "ck_product_variants_stock", d.PGConstraint)
}

func TestIsPGCode(t *testing.T) {
	assert.True(t, IsPGCode(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23505"}), "23505"))
	assert.True(t, IsPGCode(&pq.Error{Code: "23505"}, "23505"))
	assert.False(t, IsPGCode(&pq.Error{Code: "23514"}, "23505"))
	assert.False(t, IsPGCode(fmt.Errorf("plain"), "23505"))
	assert.False(t, IsPGCode(nil, "23505"))
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
