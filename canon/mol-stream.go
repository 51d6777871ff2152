package canon

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/plan-systems/klog"
)

// MolStream is a stage of a molecule pipeline.  Each stage owns the molecules it pulls from its Outlet.
type MolStream struct {
	Outlet chan MolState
}

func NewMolStream() *MolStream {
	stream := &MolStream{
		Outlet: make(chan MolState),
	}
	return stream
}

// StreamMolecules returns a stream that emits a copy of each given molecule then closes.
func StreamMolecules(mols ...MolState) *MolStream {
	next := NewMolStream()

	go func() {
		for _, X := range mols {
			next.Outlet <- X.MakeCopy()
		}
		next.Close()
	}()

	return next
}

func (stream *MolStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

func (stream *MolStream) PushMolecule(X MolState) {
	stream.Outlet <- X.MakeCopy()
}

// PullMolecule returns the next molecule or nil if the stream has closed.
func (stream *MolStream) PullMolecule() MolState {
	X := <-stream.Outlet
	return X
}

// PullAll drains the stream and returns how many molecules were pulled.
func (stream *MolStream) PullAll() int {
	count := int(0)
	for X := range stream.Outlet {
		count++
		X.Reclaim()
	}
	return count
}

// Canonize canonizes each molecule on up to numWorkers goroutines, emitting them in arrival order.
// Molecules that fail to canonize are logged and dropped.
func (stream *MolStream) Canonize(numWorkers int) *MolStream {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	next := &MolStream{
		Outlet: make(chan MolState, 1),
	}
	pending := make(chan chan MolState, numWorkers)

	go func() {
		for X := range stream.Outlet {
			done := make(chan MolState, 1)
			pending <- done
			go func(X MolState) {
				if err := X.Canonize(); err != nil {
					klog.Warningf("dropping molecule: %v", err)
					X.Reclaim()
					X = nil
				}
				done <- X
			}(X)
		}
		close(pending)
	}()

	go func() {
		for done := range pending {
			if X := <-done; X != nil {
				next.Outlet <- X
			}
		}
		next.Close()
	}()

	return next
}

// Print writes each molecule passing through to out (one per line) then closes out when the stream ends.
func (stream *MolStream) Print(
	out io.WriteCloser,
	opts PrintOpts) *MolStream {

	next := &MolStream{
		Outlet: make(chan MolState, 1),
	}

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for X := range stream.Outlet {
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
				buf.WriteByte(',')
			}

			count++
			fmt.Fprintf(&buf, "%06d,", count)
			X.WriteAsString(&buf, opts)
			buf.WriteByte('\n')
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- X
		}
		out.Close()
		next.Close()
	}()

	return next
}

// AddOpts modifies AddTo() behavior.
type AddOpts struct {
	AutoClose io.Closer // if set, closed once the inbound stream ends
}

// AddTo passes along only the molecules that target accepts as new.
func (stream *MolStream) AddTo(target MolAdder, opts AddOpts) *MolStream {
	next := &MolStream{
		Outlet: make(chan MolState, 1),
	}

	go func() {
		for X := range stream.Outlet {
			wasAdded, err := target.TryAddMolecule(X)
			if err != nil {
				klog.Errorf("TryAddMolecule: %v", err)
			}
			if wasAdded {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		if opts.AutoClose != nil {
			opts.AutoClose.Close()
		}
		next.Close()
	}()

	return next
}

// SelectFromCatalog streams the molecules in cat meeting sel.
func SelectFromCatalog(cat Catalog, sel MolSelector) *MolStream {
	next := &MolStream{
		Outlet: make(chan MolState, 1),
	}

	onHit := make(chan MolState, 4)

	go func() {
		if err := cat.Select(sel, onHit); err != nil {
			klog.Errorf("catalog select: %v", err)
		}
		close(onHit)
	}()

	go func() {
		for X := range onHit {
			if sel.SelectsMolecule(X) {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}

// SelectFromStream passes along only the molecules meeting sel.
func (stream *MolStream) SelectFromStream(sel MolSelector) *MolStream {
	next := &MolStream{
		Outlet: make(chan MolState, 1),
	}

	go func() {
		for X := range stream.Outlet {
			if sel.SelectsMolecule(X) {
				next.Outlet <- X
			} else {
				X.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}
