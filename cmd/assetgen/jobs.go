package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/kingdom-assetgen/internal/model"
)

// jobsOptions defines flags for the `jobs` command.
type jobsOptions struct {
	*options
	status   string
	category string
	limit    int
}

func (o *jobsOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.status, "status", "", "only jobs in this state (queued|running|done|error)")
	cmd.Flags().StringVar(&o.category, "category", "", "only jobs of this category")
	cmd.Flags().IntVar(&o.limit, "limit", 25, "maximum number of jobs to list")
}

func (o *jobsOptions) run(cmd *cobra.Command) error {
	filter := model.JobFilter{
		Status:   model.JobStatus(o.status),
		Category: o.category,
		Limit:    o.limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid status %q", o.status)
	}

	ledger, err := o.openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	jobs, err := ledger.ListJobs(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "no jobs")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UPDATED\tSTATUS\tCATEGORY\tASSET\tDETAIL")
	for _, j := range jobs {
		detail := filepath.ToSlash(j.OutputPath)
		if j.Status == model.JobError {
			detail = j.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", humanize.Time(j.UpdatedAt), j.Status, j.Category, j.Asset, detail)
	}
	return tw.Flush()
}

func newCmdJobs(opt *options) *cobra.Command {
	o := &jobsOptions{options: opt}
	command := &cobra.Command{
		Use:   "jobs",
		Short: "List recorded generation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}
	o.addFlags(command)
	return command
}
