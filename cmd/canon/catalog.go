package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/fine-structures/canon/canon"
	"github.com/fine-structures/canon/libcanon"
	"github.com/fine-structures/canon/libcanon/catalog"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
)

func (a *app) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Add molecules to, or select molecules from, a catalog of distinct molecules",
	}
	cmd.PersistentFlags().String("db", "", "catalog directory")
	cmd.PersistentFlags().Bool("labeling", false, "print each molecule's canonical labeling")
	cmd.PersistentFlags().Bool("cert", false, "print each molecule's certificate")

	cmd.AddCommand(a.catalogAddCommand())
	cmd.AddCommand(a.catalogSelectCommand())
	return cmd
}

func (a *app) catalogAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [EXPR...]",
		Short: "Add molecules (from args, else one per line from stdin), printing each one not already present",
		RunE: func(cmd *cobra.Command, args []string) error {
			mols, err := a.readMolecules(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return a.runCatalogAdd(cmd.OutOrStdout(), mols)
		},
	}
	cmd.Flags().Int("workers", 0, "canonize on this many goroutines (0 for one per CPU)")
	cmd.Flags().Bool("ignore-elements", false, "consider atoms equivalent regardless of element")
	cmd.Flags().Bool("ignore-order", false, "treat every bond as a single bond")
	return cmd
}

func (a *app) catalogSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Print catalogued molecules within an atom count range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCatalogSelect(cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int("min-atoms", 0, "minimum atom count")
	cmd.Flags().Int("max-atoms", canon.MaxAtoms, "maximum atom count")
	return cmd
}

// readMolecules parses the given expressions, or if there are none, each non-blank line of in.
// Lines starting with '#' are skipped.
func (a *app) readMolecules(in io.Reader, exprs []string) ([]canon.MolState, error) {
	if len(exprs) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || line[0] == '#' {
				continue
			}
			exprs = append(exprs, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	opts := libcanon.AtomOpts{
		IgnoreElements:  a.cfg.GetBool("ignore-elements"),
		IgnoreBondOrder: a.cfg.GetBool("ignore-order"),
	}

	mols := make([]canon.MolState, 0, len(exprs))
	for _, expr := range exprs {
		X, err := libcanon.ParseMolecule(expr)
		if err != nil {
			return nil, err
		}
		X.Opts = opts
		mols = append(mols, X)
	}
	return mols, nil
}

func (a *app) openCatalog(readOnly bool) (canon.CatalogContext, canon.Catalog, error) {
	dbPath := a.cfg.GetString("db")
	if dbPath == "" {
		return nil, nil, errors.Wrap(canon.ErrBadCatalogParam, "--db is required")
	}

	ctx := canon.NewCatalogContext()
	cat, err := catalog.OpenCatalog(ctx, canon.CatalogOpts{
		DbPathName: dbPath,
		ReadOnly:   readOnly,
	})
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return ctx, cat, nil
}

func closeCatalog(ctx canon.CatalogContext, cat canon.Catalog) error {
	err := cat.Close()
	ctx.Close()
	<-ctx.Done()
	return err
}

func (a *app) runCatalogAdd(out io.Writer, mols []canon.MolState) error {
	ctx, cat, err := a.openCatalog(false)
	if err != nil {
		return err
	}

	added := canon.StreamMolecules(mols...).
		Canonize(a.cfg.GetInt("workers")).
		AddTo(cat, canon.AddOpts{}).
		Print(nopCloser{out}, a.printOpts()).
		PullAll()

	klog.Infof("added %d of %d molecules", added, len(mols))
	return closeCatalog(ctx, cat)
}

func (a *app) runCatalogSelect(out io.Writer) error {
	sel := canon.DefaultMolSelector
	sel.Min.NumAtoms = a.cfg.GetInt("min-atoms")
	sel.Max.NumAtoms = a.cfg.GetInt("max-atoms")
	if sel.Min.NumAtoms < 0 || sel.Max.NumAtoms > canon.MaxAtoms || sel.Min.NumAtoms > sel.Max.NumAtoms {
		return errors.Wrapf(canon.ErrBadCatalogParam, "atom count range [%d, %d]", sel.Min.NumAtoms, sel.Max.NumAtoms)
	}

	ctx, cat, err := a.openCatalog(true)
	if err != nil {
		return err
	}

	count := canon.SelectFromCatalog(cat, sel).
		Print(nopCloser{out}, a.printOpts()).
		PullAll()

	klog.V(1).Infof("selected %d molecules", count)
	return closeCatalog(ctx, cat)
}

// nopCloser keeps a Print stage from closing the command's output.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
