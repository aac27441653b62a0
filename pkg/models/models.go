// Package models holds the gorm entities persisted by the order service.
package models

// All lists every entity for schema migration, parents before children.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MenuItem{},
		&Cart{},
		&CartLine{},
		&Order{},
		&OrderItem{},
		&Payment{},
	}
}
