package libcanon

import (
	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// elementSymbols lists elements by atomic number, starting at hydrogen.
var elementSymbols = []string{
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
}

var atomicNumbers = func() map[string]int {
	lookup := make(map[string]int, len(elementSymbols))
	for i, sym := range elementSymbols {
		lookup[sym] = i + 1
	}
	return lookup
}()

// AtomicNumber returns the atomic number of the given element symbol.
func AtomicNumber(symbol string) (int, error) {
	Z, known := atomicNumbers[symbol]
	if !known {
		return 0, errors.Wrapf(canon.ErrUnknownElement, "%q", symbol)
	}
	return Z, nil
}
