package canon

import (
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
)

// PartitionExpr is the grammar of a Partition's textual form: "0,1|2,3".
type PartitionExpr struct {
	Cells []*CellExpr `parser:"( @@ ( \"|\" @@ )* )?"`
}

type CellExpr struct {
	Vertices []int `parser:"@Int ( \",\" @Int )*"`
}

var parsePartitionExpr = participle.MustBuild[PartitionExpr]()

// ParsePartition reads the form written by Partition.String().
//
// On error, no partition is returned and the error names the offending token.
func ParsePartition(str string) (*Partition, error) {
	expr, err := parsePartitionExpr.ParseString("", str)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "partition %q: %v", str, err)
	}

	P := &Partition{
		cells: make([]Cell, 0, len(expr.Cells)),
	}
	for _, cell := range expr.Cells {
		P.AddCell(cell.Vertices...)
	}

	if err = P.Validate(); err != nil {
		return nil, errors.Wrapf(err, "partition %q", str)
	}
	return P, nil
}

// MustParsePartition is ParsePartition for literals known to be well-formed.
func MustParsePartition(str string) *Partition {
	P, err := ParsePartition(str)
	if err != nil {
		panic(err)
	}
	return P
}
