package repository

import (
	"gorm.io/gorm"

	"golang-task-automation-engine/internal/utils"
)

// UnitOfWork runs a function inside a single database transaction. The
// function receives a DBOption that binds repository calls to that
// transaction.
type UnitOfWork interface {
	Run(fn func(opts ...utils.DBOption) error) error
}

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(utils.WithTransaction(tx))
	})
}
