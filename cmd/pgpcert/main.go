package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	app "github.com/pgpcert/pgpcert/internal/app/pgpcert"
)

var debug bool

func newApp(cmd *cobra.Command) (*app.App, error) {
	opts := []app.AppOpt{
		app.OptAppOutput(cmd.OutOrStdout()),
	}
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.OptAppLogger(logger))
	}
	return app.New(opts...)
}

func getInspect() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <cert>",
		Short: "Display a summary of a certificate",
		Long: `Parse and canonicalize an OpenPGP certificate, armored or binary, and
print its fingerprint, components, signature counts and revocation
status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.Inspect(args[0])
		},
		DisableFlagsInUseLine: true,
	}
}

func getMerge() *cobra.Command {
	var out string
	var armored bool

	cmd := &cobra.Command{
		Use:   "merge -o <out> <cert>...",
		Short: "Merge copies of a certificate",
		Long: `Merge several copies of the same certificate, for example one from a
keyserver and one from a local keyring, into a single canonical
certificate. All copies must share the primary key fingerprint.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.Merge(out, args, armored)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "path to write the merged certificate to")
	cmd.Flags().BoolVarP(&armored, "armor", "a", false, "write ASCII armored output")
	cmd.MarkFlagRequired("output")
	return cmd
}

func main() {
	root := cobra.Command{
		Use:   "pgpcert",
		Short: "pgpcert inspects and merges OpenPGP certificates",
		Long: `pgpcert parses OpenPGP certificates into canonical form, validating
self signatures and filing every signature with the component it
belongs to, and merges copies of a certificate without losing data.`,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable canonicalization trace logging")

	root.AddCommand(getInspect())
	root.AddCommand(getMerge())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
