package canon

import "sync"

func NewCatalogContext() CatalogContext {
	ctx := &catalogContext{
		openCatalogs: make(map[Catalog]struct{}),
		closing:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
	ctx.openCount.Add(1)
	go func() {
		<-ctx.closing
		ctx.openCount.Done()
		ctx.openCount.Wait()
		close(ctx.closed)
	}()
	return ctx
}

type catalogContext struct {
	mu           sync.Mutex
	openCount    sync.WaitGroup
	openCatalogs map[Catalog]struct{}
	closing      chan struct{}
	closed       chan struct{}
	closeOnce    sync.Once
}

func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.openCount.Add(1)
	ctx.mu.Lock()
	ctx.openCatalogs[cat] = struct{}{}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	if _, exists := ctx.openCatalogs[cat]; exists {
		delete(ctx.openCatalogs, cat)
		ctx.openCount.Done()
	}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.closed
}

func (ctx *catalogContext) Close() {
	ctx.closeOnce.Do(func() {
		close(ctx.closing)
		ctx.mu.Lock()
		open := make([]Catalog, 0, len(ctx.openCatalogs))
		for cat := range ctx.openCatalogs {
			open = append(open, cat)
		}
		ctx.mu.Unlock()

		for _, cat := range open {
			go cat.Close()
		}
	})
}

// DefaultMolSelector selects all molecules.
var DefaultMolSelector = MolSelector{
	Max: MolInfo{
		NumAtoms:   MaxAtoms,
		NumBonds:   MaxAtoms * MaxAtoms,
		NumClasses: MaxAtoms,
		GroupOrder: 1<<63 - 1,
	},
}

// MaxAtoms bounds the atom count of catalogued molecules (one key byte).
const MaxAtoms = 255

// SelectsMolecule reports whether X falls within the selector's bounds.
func (sel *MolSelector) SelectsMolecule(X MolState) bool {
	return sel.Selects(X.GetInfo())
}

func (sel *MolSelector) Selects(info MolInfo) bool {
	if info.NumAtoms < sel.Min.NumAtoms || info.NumBonds < sel.Min.NumBonds || info.NumClasses < sel.Min.NumClasses || info.GroupOrder < sel.Min.GroupOrder {
		return false
	}
	if info.NumAtoms > sel.Max.NumAtoms || info.NumBonds > sel.Max.NumBonds || info.NumClasses > sel.Max.NumClasses || info.GroupOrder > sel.Max.GroupOrder {
		return false
	}
	return true
}
