package utils

import "gorm.io/gorm"

// DBOption lets callers swap the session a repository call runs on, typically
// to join an open transaction.
type DBOption func(db *gorm.DB) *gorm.DB

func ApplyOptions(db *gorm.DB, opts ...DBOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

func WithTransaction(tx *gorm.DB) DBOption {
	return func(db *gorm.DB) *gorm.DB {
		return tx
	}
}
