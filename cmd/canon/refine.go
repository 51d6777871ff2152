package main

import (
	"fmt"
	"io"

	"github.com/fine-structures/canon/canon"
	"github.com/fine-structures/canon/libcanon"
	"github.com/spf13/cobra"
)

func (a *app) refineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refine EXPR",
		Short: "Print the symmetry and canonical labeling of a molecule",
		Long: `Refine the atom graph (or with --bonds, the bond graph) of a molecule and print
its automorphism partition, group order, canonical labeling and certificate.

  canon refine "C C C O; 0-1, 1-2, 1=3"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRefine(cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().Bool("bonds", false, "refine the bond graph instead of the atom graph")
	cmd.Flags().Bool("ignore-elements", false, "start all atoms in one cell regardless of element")
	cmd.Flags().Bool("ignore-order", false, "treat every bond as a single bond")
	cmd.Flags().Int("max-leaves", 0, "stop the search after this many leaves (0 for no limit)")
	return cmd
}

func (a *app) runRefine(out io.Writer, expr string) error {
	mol, err := libcanon.ParseMolecule(expr)
	if err != nil {
		return err
	}
	defer mol.Reclaim()

	atomOpts := libcanon.AtomOpts{
		IgnoreElements:  a.cfg.GetBool("ignore-elements"),
		IgnoreBondOrder: a.cfg.GetBool("ignore-order"),
	}
	bonds := a.cfg.GetBool("bonds")

	var g *libcanon.Graph
	if bonds {
		g, err = libcanon.BondRefinable(mol, libcanon.BondOpts{
			IgnoreBondOrder: atomOpts.IgnoreBondOrder,
		})
	} else {
		g, err = libcanon.AtomRefinable(mol, atomOpts)
	}
	if err != nil {
		return err
	}

	refiner := libcanon.NewDiscreteRefiner(libcanon.RefinerOpts{
		MaxLeaves: a.cfg.GetInt("max-leaves"),
	})
	res, err := refiner.Refine(g)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "aut\t%v\n", res.AutomorphismPartition())
	fmt.Fprintf(out, "order\t%d\n", res.GroupOrder())
	fmt.Fprintf(out, "best\t%v\n", res.Best())
	fmt.Fprintf(out, "cert\t%s\n", res.HalfMatrixString())
	fmt.Fprintf(out, "canonical\t%v\n", res.IsCanonical())
	fmt.Fprintf(out, "leaves\t%d\n", res.LeavesVisited())
	if !res.Complete() {
		fmt.Fprintf(out, "complete\t%v\n", false)
	}

	if !bonds {
		var form *libcanon.Molecule
		var key []byte
		form, key, err = libcanon.Canonize(mol, atomOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "form\t%v\n", form)
		fmt.Fprintf(out, "key\t%s\n", key)
		form.Reclaim()
	}

	for _, gen := range res.AutomorphismGroup().Generators() {
		fmt.Fprintf(out, "gen\t%s\n", gen.ToCycleString())
	}
	return nil
}

// printOpts reads the print flags shared by the catalog subcommands.
func (a *app) printOpts() canon.PrintOpts {
	opts := canon.DefaultPrintOpts
	opts.Labeling = a.cfg.GetBool("labeling")
	opts.Certificate = a.cfg.GetBool("cert")
	return opts
}
