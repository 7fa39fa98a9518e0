package models

// All lists every persisted model in dependency order. Used by AutoMigrate in
// tests and by the sqlite dev database.
func All() []any {
	return []any{
		&Shop{},
		&Product{},
		&ProductVariant{},
		&Coupon{},
		&UserCoupon{},
		&Cart{},
		&CartItem{},
		&Order{},
		&SubOrder{},
		&OrderItem{},
	}
}
