package domain

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrOrderAlreadyPaid  = errors.New("order already paid")
	ErrProductInUse      = errors.New("product referenced by existing order")
	ErrDuplicateRequest  = errors.New("duplicate request")
)
