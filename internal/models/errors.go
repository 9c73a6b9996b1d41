package models

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrDoseAlreadyResolved = errors.New("dose already resolved")
	ErrInvalidStatus       = errors.New("invalid dose status")
	ErrStockNotTracked     = errors.New("stock not tracked for medication")
	ErrInvalidQuantity     = errors.New("invalid quantity")
)
