package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/kingdom-assetgen/internal/probe"
)

func newCmdProbe(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check the generation server is reachable and has the required nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "probing %s\n", o.cfg.ServerURL)
			r, err := probe.Check(cmd.Context(), o.client(), probe.RequiredKinds(o.cfg.PostProcessNode))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "server offers %d node kinds\n", r.Kinds)
			for _, k := range r.Present {
				fmt.Fprintf(out, "  found    %s\n", k)
			}
			for _, m := range r.Missing {
				fmt.Fprintf(out, "  MISSING  %s", m.Kind)
				if len(m.Suggestions) > 0 {
					fmt.Fprintf(out, " (did you mean %s?)", strings.Join(m.Suggestions, ", "))
				}
				fmt.Fprintln(out)
			}
			if len(r.BackgroundRemoval) > 0 {
				fmt.Fprintf(out, "background removal nodes: %s\n", strings.Join(r.BackgroundRemoval, ", "))
			}
			if !r.OK() {
				return fmt.Errorf("%d required node kinds missing", len(r.Missing))
			}
			return nil
		},
	}
}
