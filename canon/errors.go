package canon

import "github.com/pkg/errors"

// Errors
var (
	ErrParse           = errors.New("parse failed")
	ErrSizeMismatch    = errors.New("permutation sizes differ")
	ErrBadPermutation  = errors.New("values do not form a permutation")
	ErrCellIndex       = errors.New("cell index out of range")
	ErrVertexIndex     = errors.New("vertex index out of range")
	ErrNotDiscrete     = errors.New("partition is not discrete")
	ErrEmptyCell       = errors.New("empty cell")
	ErrBadPartition    = errors.New("cells do not form a partition")
	ErrNilGraph        = errors.New("nil graph")
	ErrBadBond         = errors.New("bad bond")
	ErrUnknownElement  = errors.New("unknown element symbol")
	ErrBadCatalogParam = errors.New("bad catalog param")
	ErrCatalogReadOnly = errors.New("catalog is read-only")
	ErrCatalogClosed   = errors.New("catalog is closed")
)
