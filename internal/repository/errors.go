// Package repository holds the gorm data access for every entity.
// Repositories are cheap to build, so services construct them over a transaction
// handle when an operation spans several tables.
package repository

import (
	"errors" // Error inspection

	"gorm.io/gorm" // GORM ORM library
)

// Conditional update failures
var (
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrOutOfStock        = errors.New("reward out of stock")
	ErrDuplicate         = errors.New("duplicate record")
)

// insertErr maps a unique constraint violation to ErrDuplicate
func insertErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// Page is a 1-based pagination request
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset of the page
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TotalPages returns the number of pages for total rows
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 {
		return 0
	}
	return (int(total) + p.Size - 1) / p.Size
}
