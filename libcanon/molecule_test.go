package libcanon

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	azuleneExpr  = "C C C C C C C C C C; 0=1-2=3-4=5-6=7-8=9-5, 9-0"
	biphenylExpr = "C C C C C C C C C C C C; 0-1=2-3=4-5=0, 0-6, 6-7=8-9=10-11=6"
	ethanolExpr  = "C C O; 0-1, 1-2"
)

func TestParseMoleculeRoundTrip(t *testing.T) {
	for _, test := range []struct {
		expr string
		want string
	}{
		{"C C O; 0-1, 1=2", "C C O; 0-1, 1=2"},
		{"C C O; 0-1=2", "C C O; 0-1, 1=2"},
		{"C C N; 0#1, 1~2", "C C N; 0#1, 1~2"},
		{"O", "O"},
		{"Cl C; 1-0", "Cl C; 1-0"},
		{"", ""},
	} {
		X, err := ParseMolecule(test.expr)
		require.NoError(t, err, test.expr)
		assert.Equal(t, test.want, X.String())

		again, err := ParseMolecule(X.String())
		require.NoError(t, err)
		assert.Equal(t, X.Bonds, again.Bonds)
	}
}

func TestParseMoleculeErrors(t *testing.T) {
	for _, test := range []struct {
		expr string
		want error
	}{
		{"C C; 0>1", canon.ErrParse},
		{"C C; 0-", canon.ErrParse},
		{"C C; 0-1,", canon.ErrParse},
		{"C C; 0-2", canon.ErrBadBond},
		{"C C; 0-0", canon.ErrBadBond},
		{"C C; 0-1, 1-0", canon.ErrBadBond},
	} {
		X, err := ParseMolecule(test.expr)
		assert.Nil(t, X, test.expr)
		assert.True(t, errors.Is(err, test.want), "%q: %v", test.expr, err)
	}
}

func TestMoleculeValidate(t *testing.T) {
	X := NewMolecule()
	X.AddAtom("C")
	X.AddAtom("C")
	require.NoError(t, X.AddBond(0, 1, Single))
	assert.Error(t, X.AddBond(1, 0, Double))
	assert.Error(t, X.AddBond(0, 1, BondOrder(7)))
	require.NoError(t, X.Validate())

	X.Bonds = append(X.Bonds, Bond{A: 1, B: 0, Order: Single})
	assert.True(t, errors.Is(X.Validate(), canon.ErrBadBond))

	_, err := ParseBondOrder("!")
	assert.True(t, errors.Is(err, canon.ErrBadBond))
	order, err := ParseBondOrder("#")
	require.NoError(t, err)
	assert.Equal(t, Triple, order)
}

func TestUnknownElement(t *testing.T) {
	X := MustParseMolecule("Xx C; 0-1")
	assert.True(t, errors.Is(X.Canonize(), canon.ErrUnknownElement))

	Z, err := AtomicNumber("Cl")
	require.NoError(t, err)
	assert.Equal(t, 17, Z)
}

func TestMoleculeSymmetry(t *testing.T) {
	for _, test := range []struct {
		expr  string
		opts  AtomOpts
		aut   string
		order int64
	}{
		{ethanolExpr, AtomOpts{}, "0|1|2", 1},
		{"C O C; 0-1, 1-2", AtomOpts{}, "0,2|1", 2},
		{"C O C; 0-1, 1-2", AtomOpts{IgnoreElements: true}, "0,2|1", 2},
		{"C C O; 0-1, 1-2", AtomOpts{IgnoreElements: true}, "0,2|1", 2},
		{"C C C C C C; 0=1-2=3-4=5-0", AtomOpts{}, "0,1,2,3,4,5", 6},
		{"C C C C C C; 0=1-2=3-4=5-0", AtomOpts{IgnoreBondOrder: true}, "0,1,2,3,4,5", 12},
		{azuleneExpr, AtomOpts{IgnoreBondOrder: true}, "0,4|1,3|2|5,9|6,8|7", 2},
		{"C H H H H; 0-1, 0-2, 0-3, 0-4", AtomOpts{}, "0|1,2,3,4", 24},
	} {
		X := MustParseMolecule(test.expr)
		X.Opts = test.opts
		require.NoError(t, X.Canonize(), test.expr)
		assert.Equal(t, test.aut, X.AutPartition().String(), test.expr)
		assert.Equal(t, test.order, X.GroupOrder(), test.expr)

		info := X.GetInfo()
		assert.Equal(t, len(X.Atoms), info.NumAtoms)
		assert.Equal(t, len(X.Bonds), info.NumBonds)
		assert.Equal(t, X.AutPartition().Size(), info.NumClasses)
	}
}

func TestAtomRefinerFixtures(t *testing.T) {
	azulene := MustParseMolecule(azuleneExpr)
	ar := NewAtomRefiner(AtomOpts{IgnoreBondOrder: true})

	P, err := ar.AutomorphismPartition(azulene)
	require.NoError(t, err)
	assert.Equal(t, "0,4|1,3|2|5,9|6,8|7", P.String())

	G, err := ar.AutomorphismGroup(azulene)
	require.NoError(t, err)
	assert.EqualValues(t, 2, G.Order())

	res, err := ar.Refine(azulene)
	require.NoError(t, err)
	form, err := azulene.Relabel(res.Best())
	require.NoError(t, err)
	canonical, err := ar.IsCanonical(form)
	require.NoError(t, err)
	assert.True(t, canonical)

	_, err = ar.Refine(nil)
	assert.Error(t, err)
}

func TestAtomOrderCanonical(t *testing.T) {
	ar := NewAtomRefiner(AtomOpts{})
	for _, test := range []struct {
		expr      string
		canonical bool
	}{
		{"C C O; 0-1, 1-2", true},
		{"O C C; 0-1, 1-2", false},
		{"C O C; 0-1, 1-2", false},
		{"C C; 0-1", true},
	} {
		canonical, err := ar.IsCanonical(MustParseMolecule(test.expr))
		require.NoError(t, err)
		assert.Equal(t, test.canonical, canonical, test.expr)

		X := MustParseMolecule(test.expr)
		require.NoError(t, X.Canonize())
		assert.Equal(t, test.canonical, X.IsCanonical(), test.expr)
	}

	// with elements ignored, the middle atom of the path still belongs last
	canonical, err := NewAtomRefiner(AtomOpts{IgnoreElements: true}).IsCanonical(MustParseMolecule("O C C; 0-1, 1-2"))
	require.NoError(t, err)
	assert.False(t, canonical)

	form, _, err := Canonize(MustParseMolecule("O C C; 0-1, 1-2"), AtomOpts{})
	require.NoError(t, err)
	assert.Equal(t, "C C O; 0-1, 1-2", form.String())
}

func TestBondRefinerFixtures(t *testing.T) {
	biphenyl := MustParseMolecule(biphenylExpr)
	require.Equal(t, 13, biphenyl.BondCount())

	br := NewBondRefiner(BondOpts{IgnoreBondOrder: true})
	P, err := br.AutomorphismPartition(biphenyl)
	require.NoError(t, err)
	assert.Equal(t, "0,5,7,12|1,4,8,11|2,3,9,10|6", P.String())

	G, err := br.AutomorphismGroup(biphenyl)
	require.NoError(t, err)
	assert.EqualValues(t, 8, G.Order())

	// with bond orders, only the swap of the two Kekulé rings remains
	P, err = NewBondRefiner(BondOpts{}).AutomorphismPartition(biphenyl)
	require.NoError(t, err)
	assert.Equal(t, "0,7|1,8|2,9|3,10|4,11|5,12|6", P.String())

	g, err := BondRefinable(biphenyl, BondOpts{})
	require.NoError(t, err)
	assert.Equal(t, 13, g.VertexCount())
	assert.Equal(t, 1, g.Connectivity(0, 5))
	assert.Equal(t, 0, g.Connectivity(0, 2))
}

func TestCanonizeRelabeledCopies(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, expr := range []string{
		ethanolExpr,
		azuleneExpr,
		biphenylExpr,
		"C C C C O N; 0-1, 1-2, 2=3, 3-4, 4-0, 2-5",
	} {
		X := MustParseMolecule(expr)
		form, key, err := Canonize(X, AtomOpts{})
		require.NoError(t, err)

		for k := 0; k < 4; k++ {
			Y, err := X.Relabel(canon.Permutation(rng.Perm(X.AtomCount())))
			require.NoError(t, err)

			formY, keyY, err := Canonize(Y, AtomOpts{})
			require.NoError(t, err)
			assert.Equal(t, string(key), string(keyY), expr)
			assert.Equal(t, form.String(), formY.String(), expr)
		}

		// a canonical form is its own canonical form
		formForm, _, err := Canonize(form, AtomOpts{})
		require.NoError(t, err)
		assert.Equal(t, form.String(), formForm.String())
		require.NoError(t, form.Canonize())
		assert.True(t, form.IsCanonical(), expr)
	}
}

func TestCanonicalKeyDistinguishes(t *testing.T) {
	keyOf := func(expr string, opts AtomOpts) string {
		_, key, err := Canonize(MustParseMolecule(expr), opts)
		require.NoError(t, err)
		return string(key)
	}

	ethanol := keyOf(ethanolExpr, AtomOpts{})
	assert.Equal(t, ethanol, keyOf("O C C; 0-1, 1-2", AtomOpts{}))
	assert.NotEqual(t, ethanol, keyOf("C O C; 0-1, 1-2", AtomOpts{}))
	assert.NotEqual(t, keyOf("C C; 0-1", AtomOpts{}), keyOf("C C; 0=1", AtomOpts{}))
	assert.Equal(t, keyOf("C C; 0-1", AtomOpts{IgnoreBondOrder: true}), keyOf("C C; 0=1", AtomOpts{IgnoreBondOrder: true}))
	assert.Equal(t, keyOf(ethanolExpr, AtomOpts{IgnoreElements: true}), keyOf("C O C; 0-1, 1-2", AtomOpts{IgnoreElements: true}))
	assert.Equal(t, "3;C C O;", ethanol[:8])
}

func TestMoleculeRelabel(t *testing.T) {
	X := MustParseMolecule(ethanolExpr)
	Y, err := X.Relabel(canon.Permutation{2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, "O C C; 0-1, 1-2", Y.String())

	_, err = X.Relabel(canon.Permutation{0, 1})
	assert.True(t, errors.Is(err, canon.ErrSizeMismatch))
	_, err = X.Relabel(canon.Permutation{0, 0, 1})
	assert.True(t, errors.Is(err, canon.ErrBadPermutation))
}

func TestMoleculeCopyAndPrint(t *testing.T) {
	X := MustParseMolecule("C O C; 0-1, 1-2")
	require.NoError(t, X.Canonize())

	Y := X.MakeCopy().(*Molecule)
	assert.True(t, Y.IsCanonized())
	assert.Equal(t, X.CanonicalKey(), Y.CanonicalKey())

	Y.AddAtom("H")
	assert.False(t, Y.IsCanonized())
	assert.True(t, X.IsCanonized())
	assert.Equal(t, 3, X.AtomCount())

	var out strings.Builder
	X.WriteAsString(&out, canon.PrintOpts{Expr: true, Symmetry: true, Labeling: true, Certificate: true})
	assert.Equal(t, `"C O C; 0-1, 1-2"`+"\torder=2\taut=0,2|1\tlabeling="+X.Labeling().String()+"\tcert="+X.HalfMatrixString(), out.String())
}
