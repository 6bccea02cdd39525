package service

import (
	"context"
	"io"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
)

// LedgerFileReader reads an uploaded spreadsheet file into a raw table
type LedgerFileReader interface {
	Read(ctx context.Context, r io.Reader) (entity.Table, error)
}

// LedgerSheetReader reads a shared online spreadsheet into a raw table
type LedgerSheetReader interface {
	Read(ctx context.Context, link string) (entity.Table, error)
}
