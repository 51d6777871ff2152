package catalog

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/canon/canon"
	"github.com/fine-structures/canon/libcanon"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState

	AtomCount (byte), AtomOpts flags (byte), CanonicalKey => moleculeRecord
	...

Entries sort by atom count first, so a selection over an atom count range is a single seek and scan.
The canonical key already leads with the atom count in decimal, so no other separator is needed.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

// catalog is a db of canonical molecules.
type catalog struct {
	mu         sync.Mutex
	ctx        canon.CatalogContext
	readOnly   bool
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

// OpenCatalog opens (or creates) the catalog at opts.DbPathName, or an in-memory catalog if no path is given.
func OpenCatalog(ctx canon.CatalogContext, opts canon.CatalogOpts) (canon.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // writes are serialized by cat.mu
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(canon.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog %q", opts.DbPathName)
	}

	// Once the db is open, the catalog ctx is blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state.MajorVers = kMajorVers
		cat.state.MinorVers = kMinorVers
		cat.state.NumMolecules = make([]uint64, canon.MaxAtoms+1)
	}

	if err == nil && (cat.state.MajorVers != kMajorVers || cat.state.MinorVers != kMinorVers) {
		err = errors.Errorf("catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	klog.Infof("opened catalog %q (read-only: %v)", opts.DbPathName, cat.readOnly)
	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *catalog) flushState() error {
	if !cat.stateDirty {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		stateBuf, err := cat.state.Marshal()
		if err != nil {
			return err
		}
		return txn.Set(gCatalogStateKey, stateBuf)
	})
	if err != nil {
		return errors.Wrap(err, "flush catalog state")
	}
	cat.stateDirty = false
	return nil
}

func (cat *catalog) Close() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.db == nil {
		return nil
	}

	err := cat.flushState()
	if closeErr := cat.db.Close(); err == nil {
		err = closeErr
	}
	cat.db = nil
	cat.ctx.DetachCatalog(cat)
	cat.ctx = nil

	if err != nil {
		klog.Errorf("closing catalog: %v", err)
	}
	return err
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumMolecules(forAtomCount int) int64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if forAtomCount < 0 || forAtomCount >= len(cat.state.NumMolecules) {
		return 0
	}
	return int64(cat.state.NumMolecules[forAtomCount])
}

// formMoleculeKey writes the atom count, the atom opts flags, then X's canonical key.
// Molecules added under different opts never collide.
func formMoleculeKey(key []byte, X canon.MolState) []byte {
	var flags byte
	if mol, ok := X.(*libcanon.Molecule); ok {
		flags = optFlags(mol.Opts)
	}
	key = append(key, byte(X.AtomCount()), flags)
	key = append(key, X.CanonicalKey()...)
	return key
}

// TryAddMolecule adds X if no isomorphic molecule is already in the catalog.
//
// If true is returned, X was not present and was added.
func (cat *catalog) TryAddMolecule(X canon.MolState) (bool, error) {
	if cat.readOnly {
		return false, canon.ErrCatalogReadOnly
	}
	if N := X.AtomCount(); N > canon.MaxAtoms {
		return false, errors.Wrapf(canon.ErrBadCatalogParam, "atom count %d exceeds %d", N, canon.MaxAtoms)
	}
	if err := X.Canonize(); err != nil {
		return false, err
	}

	info := X.GetInfo()
	rec := moleculeRecord{
		Expr:       string(X.MarshalExpr(nil)),
		NumBonds:   uint64(info.NumBonds),
		NumClasses: uint64(info.NumClasses),
		GroupOrder: uint64(info.GroupOrder),
	}
	if mol, ok := X.(*libcanon.Molecule); ok {
		rec.Opts = mol.Opts
	}
	val, err := rec.Marshal(nil)
	if err != nil {
		return false, err
	}
	key := formMoleculeKey(nil, X)

	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.db == nil {
		return false, canon.ErrCatalogClosed
	}

	txn := cat.db.NewTransaction(true)
	defer txn.Discard()

	_, err = txn.Get(key)
	if err == nil {
		return false, nil
	}
	if err != badger.ErrKeyNotFound {
		return false, err
	}

	if err = txn.Set(key, val); err != nil {
		return false, err
	}
	if err = txn.Commit(); err != nil {
		return false, errors.Wrap(err, "commit molecule")
	}

	cat.state.NumMolecules[info.NumAtoms]++
	cat.stateDirty = true
	return true, nil
}

// Select sends each catalogued molecule meeting sel to onHit, in catalog order.
//
// Ownership of each sent molecule passes to the receiver.
func (cat *catalog) Select(sel canon.MolSelector, onHit canon.OnMolHit) error {
	cat.mu.Lock()
	db := cat.db
	cat.mu.Unlock()

	if db == nil {
		return canon.ErrCatalogClosed
	}

	txn := db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   300,
	})
	defer it.Close()

	minKey := [1]byte{byte(sel.Min.NumAtoms)}

	var rec moleculeRecord
	for it.Seek(minKey[:]); it.Valid(); it.Next() {
		item := it.Item()
		key := item.Key()

		// Stop when the atom count is over the max
		if int(key[0]) > sel.Max.NumAtoms {
			break
		}
		if bytes.Equal(key, gCatalogStateKey) {
			continue
		}

		err := item.Value(func(val []byte) error {
			return rec.Unmarshal(val)
		})
		if err != nil {
			return errors.Wrapf(err, "key %q", key)
		}

		info := canon.MolInfo{
			NumAtoms:   int(key[0]),
			NumBonds:   int(rec.NumBonds),
			NumClasses: int(rec.NumClasses),
			GroupOrder: int64(rec.GroupOrder),
		}
		if !sel.Selects(info) {
			continue
		}

		X, err := libcanon.ParseMolecule(rec.Expr)
		if err != nil {
			return errors.Wrapf(err, "key %q", key)
		}
		X.Opts = rec.Opts
		if err = X.Canonize(); err != nil {
			return err
		}
		onHit <- X
	}

	return nil
}
