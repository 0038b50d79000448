package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/batch"
	"github.com/example/kingdom-assetgen/internal/catalog"
)

// generateOptions defines flags for the category commands.
type generateOptions struct {
	*options
	noLedger bool
}

func (o *generateOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noLedger, "no-ledger", false, "do not record jobs in the ledger")
}

func (o *generateOptions) run(cmd *cobra.Command, cats []catalog.Category) error {
	var ledger batch.Ledger
	if !o.noLedger {
		l, err := o.openLedger()
		if err != nil {
			return err
		}
		defer l.Close()
		ledger = l
	}

	reports, err := o.driver(ledger).RunAll(cmd.Context(), cats)
	for _, r := range reports {
		printReport(cmd.OutOrStdout(), r)
	}
	if err != nil {
		o.logger.Error("batch finished with failures", zap.Error(err))
		return fmt.Errorf("some assets failed")
	}
	return nil
}

func printReport(w io.Writer, r *batch.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s: %d saved, %d failed\n", r.Category, len(r.Succeeded), len(r.Failed))
	for _, out := range r.Succeeded {
		fmt.Fprintf(w, "  ok    %-36s %s (%s)\n", out.Asset, out.Path, humanize.FormatFloat("#,###.#", out.Elapsed.Seconds())+"s")
	}
	for _, out := range r.Failed {
		fmt.Fprintf(w, "  FAIL  %-36s %v\n", out.Asset, out.Err)
	}
}

func newCmdCategory(opt *options, name string) *cobra.Command {
	o := &generateOptions{options: opt}
	command := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Generate the %s assets", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Lookup(name)
			if err != nil {
				return err
			}
			return o.run(cmd, []catalog.Category{c})
		},
	}
	o.addFlags(command)
	return command
}

func newCmdAll(opt *options) *cobra.Command {
	o := &generateOptions{options: opt}
	command := &cobra.Command{
		Use:   "all",
		Short: "Generate every category in turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, catalog.All())
		},
	}
	o.addFlags(command)
	return command
}
