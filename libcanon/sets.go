package libcanon

import (
	"bytes"
	"hash/maphash"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// CanonicSet holds the canonical keys of the molecules added to it and reports if an isomorphic molecule was already added.
type CanonicSet interface {
	canon.MolAdder

	// TryAdd canonizes X if needed and adds it if no isomorphic molecule has been added.
	//
	// If X's canonical key is already present, this call has no effect and TryAdd() returns false.
	// After one or more calls to TryAdd(), call Close() for cleanup.
	TryAdd(X *Molecule) (bool, error)

	// Close removes all previously added items from this set.
	Close() error
}

// NewCanonicSet returns a CanonicSet backed by an in-memory LSM db, opened on first use.
func NewCanonicSet() CanonicSet {
	return &lsmSet{}
}

type lsmSet struct {
	mu sync.Mutex
	db *badger.DB
}

func (set *lsmSet) autoOpen() error {
	if set.db == nil {
		dbOpts := badger.DefaultOptions("").WithInMemory(true)
		dbOpts.Logger = nil
		dbOpts.MetricsEnabled = false

		var err error
		set.db, err = badger.Open(dbOpts)
		if err != nil {
			return errors.Wrap(err, "open canonic set")
		}
	}
	return nil
}

func (set *lsmSet) TryAdd(X *Molecule) (bool, error) {
	if err := X.Canonize(); err != nil {
		return false, err
	}
	return set.tryAdd(X.CanonicalKey())
}

func (set *lsmSet) TryAddMolecule(X canon.MolState) (bool, error) {
	if err := X.Canonize(); err != nil {
		return false, err
	}
	return set.tryAdd(X.CanonicalKey())
}

func (set *lsmSet) tryAdd(key []byte) (bool, error) {
	set.mu.Lock()
	defer set.mu.Unlock()

	if err := set.autoOpen(); err != nil {
		return false, err
	}

	txn := set.db.NewTransaction(true)
	defer txn.Discard()

	_, err := txn.Get(key)
	if err == nil {
		return false, nil
	}
	if err != badger.ErrKeyNotFound {
		return false, err
	}
	if err = txn.Set(key, nil); err != nil {
		return false, err
	}
	if err = txn.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (set *lsmSet) Close() error {
	set.mu.Lock()
	defer set.mu.Unlock()

	var err error
	if set.db != nil {
		err = set.db.Close()
		set.db = nil
	}
	return err
}

// DropDupes is a CanonicSet held in a process hash map, for when an LSM db is more than is needed.
type DropDupes struct {
	mu        sync.Mutex
	hashMap   map[uint64][]byte
	hasher    maphash.Hash
	bufPool   []byte
	bufPoolSz int
	opts      DropDupeOpts
}

const DefaultPoolSz = 32 * 1024

type DropDupeOpts struct {
	PoolSz int // 0 denotes DefaultPoolSz (32k)
}

func NewDropDupes(opts DropDupeOpts) *DropDupes {
	if opts.PoolSz <= 0 {
		opts.PoolSz = DefaultPoolSz
	}
	return &DropDupes{
		hashMap: make(map[uint64][]byte),
		opts:    opts,
	}
}

// Len returns how many distinct keys have been added.
func (dd *DropDupes) Len() int {
	dd.mu.Lock()
	defer dd.mu.Unlock()
	return len(dd.hashMap)
}

func (dd *DropDupes) Reset() {
	dd.mu.Lock()
	defer dd.mu.Unlock()
	dd.reset()
}

func (dd *DropDupes) reset() {
	dd.bufPool = nil
	dd.bufPoolSz = 0
	for k := range dd.hashMap {
		delete(dd.hashMap, k)
	}
}

func (dd *DropDupes) Close() error {
	dd.Reset()
	return nil
}

func (dd *DropDupes) TryAdd(X *Molecule) (bool, error) {
	return dd.TryAddMolecule(X)
}

func (dd *DropDupes) TryAddMolecule(X canon.MolState) (bool, error) {
	if err := X.Canonize(); err != nil {
		return false, err
	}
	return dd.tryAdd(X.CanonicalKey()), nil
}

func (dd *DropDupes) tryAdd(key []byte) bool {
	dd.mu.Lock()
	defer dd.mu.Unlock()

	dd.hasher.Reset()
	dd.hasher.Write(key)
	hash := dd.hasher.Sum64()

	existing, found := dd.hashMap[hash]
	for found {
		if bytes.Equal(existing, key) {
			return false
		}
		hash++
		existing, found = dd.hashMap[hash]
	}

	// New entry: copy the key into the backing pool, starting a new pool when the current one is full.
	pos := dd.bufPoolSz
	keyLen := len(key)
	if pos+keyLen > len(dd.bufPool) {
		allocSz := dd.opts.PoolSz
		if allocSz < keyLen {
			allocSz = keyLen
		}
		dd.bufPool = make([]byte, allocSz)
		dd.bufPoolSz = 0
		pos = 0
	}

	dd.hashMap[hash] = append(dd.bufPool[pos:pos], key...)
	dd.bufPoolSz += keyLen
	return true
}
