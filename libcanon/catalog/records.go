package catalog

import (
	"github.com/fine-structures/canon/libcanon"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

const (
	kMajorVers = 2023
	kMinorVers = 2
)

// catalogState is persisted under gCatalogStateKey.
type catalogState struct {
	MajorVers    uint64
	MinorVers    uint64
	NumMolecules []uint64 // indexed by atom count
}

func (state *catalogState) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(make([]byte, 0, 16+2*len(state.NumMolecules)))
	if err := buf.EncodeVarint(state.MajorVers); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(state.MinorVers); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(uint64(len(state.NumMolecules))); err != nil {
		return nil, err
	}
	for _, count := range state.NumMolecules {
		if err := buf.EncodeVarint(count); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (state *catalogState) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)

	var err error
	if state.MajorVers, err = buf.DecodeVarint(); err != nil {
		return errors.Wrap(err, "catalog state")
	}
	if state.MinorVers, err = buf.DecodeVarint(); err != nil {
		return errors.Wrap(err, "catalog state")
	}
	N, err := buf.DecodeVarint()
	if err != nil {
		return errors.Wrap(err, "catalog state")
	}
	state.NumMolecules = make([]uint64, N)
	for i := range state.NumMolecules {
		if state.NumMolecules[i], err = buf.DecodeVarint(); err != nil {
			return errors.Wrap(err, "catalog state")
		}
	}
	return nil
}

// moleculeRecord is the value stored for each catalogued molecule, keyed by atom count, opts flags and canonical key.
type moleculeRecord struct {
	Expr       string // molecule expression as it was added
	Opts       libcanon.AtomOpts
	NumBonds   uint64
	NumClasses uint64
	GroupOrder uint64
}

const (
	optIgnoreElements  = 1 << 0
	optIgnoreBondOrder = 1 << 1
)

// optFlags packs the atom opts that change what counts as a duplicate.
func optFlags(opts libcanon.AtomOpts) byte {
	flags := byte(0)
	if opts.IgnoreElements {
		flags |= optIgnoreElements
	}
	if opts.IgnoreBondOrder {
		flags |= optIgnoreBondOrder
	}
	return flags
}

func (rec *moleculeRecord) Marshal(out []byte) ([]byte, error) {
	flags := uint64(optFlags(rec.Opts))

	buf := proto.NewBuffer(out)
	if err := buf.EncodeStringBytes(rec.Expr); err != nil {
		return nil, err
	}
	for _, v := range []uint64{flags, rec.NumBonds, rec.NumClasses, rec.GroupOrder} {
		if err := buf.EncodeVarint(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (rec *moleculeRecord) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)

	var err error
	if rec.Expr, err = buf.DecodeStringBytes(); err != nil {
		return errors.Wrap(err, "molecule record")
	}
	var fields [4]uint64
	for i := range fields {
		if fields[i], err = buf.DecodeVarint(); err != nil {
			return errors.Wrap(err, "molecule record")
		}
	}
	rec.Opts.IgnoreElements = fields[0]&optIgnoreElements != 0
	rec.Opts.IgnoreBondOrder = fields[0]&optIgnoreBondOrder != 0
	rec.NumBonds = fields[1]
	rec.NumClasses = fields[2]
	rec.GroupOrder = fields[3]
	return nil
}
