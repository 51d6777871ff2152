package main

import (
	"flag"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CANON"

// app holds what every subcommand shares: the merged flag / env / file config and the klog flags.
type app struct {
	cfg       *viper.Viper
	cfgFile   string
	klogFlags *flag.FlagSet
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return v
}

func newRootCmd(klogFlags *flag.FlagSet) *cobra.Command {
	a := &app{
		cfg:       newViper(),
		klogFlags: klogFlags,
	}

	root := &cobra.Command{
		Use:   "canon",
		Short: "Canonical labeling and symmetry of molecular graphs",
		Long: `canon finds the automorphism group and a canonical labeling of a molecule's atom
or bond graph, and keeps catalogs of molecules that are distinct up to isomorphism.

Molecules are written as element symbols followed by bonds, e.g. "C C O; 0-1, 1=2".`,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "yaml config file (flags and CANON_* env vars override it)")
	if klogFlags != nil {
		root.PersistentFlags().AddGoFlagSet(klogFlags)
	}

	root.AddCommand(a.refineCommand())
	root.AddCommand(a.catalogCommand())
	root.AddCommand(a.runCommand())
	return root
}

// loadConfig binds the invoked command's flags, reads the config file if given, and applies the log verbosity.
func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	if err := a.cfg.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if a.cfgFile != "" {
		a.cfg.SetConfigFile(a.cfgFile)
		if err := a.cfg.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "config %q", a.cfgFile)
		}
	}

	// klog reads its own flag set, so carry over a verbosity that came from env or the config file.
	if a.klogFlags != nil && !cmd.Flags().Changed("v") && a.cfg.IsSet("v") {
		if err := a.klogFlags.Set("v", a.cfg.GetString("v")); err != nil {
			return errors.Wrap(err, "log verbosity")
		}
	}
	return nil
}
