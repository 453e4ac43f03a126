package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/arrayflow/datarecording"
)

type firingsOptions struct {
	actor  string
	errors bool
	limit  int
}

func newFiringsCmd() *cobra.Command {
	opts := firingsOptions{}

	firingsCmd := &cobra.Command{
		Use:   "firings run.sqlite3",
		Short: "List the firings recorded by a run.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listFirings(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	flags := firingsCmd.Flags()
	flags.StringVar(&opts.actor, "actor", "", "only list firings of this actor")
	flags.BoolVar(&opts.errors, "errors", false, "only list failed firings")
	flags.IntVar(&opts.limit, "limit", 0, "list at most this many firings")

	return firingsCmd
}

func firingQuery(opts firingsOptions) datarecording.QueryParams {
	params := datarecording.QueryParams{
		OrderBy: "ID",
		Limit:   opts.limit,
	}

	where := ""
	if opts.actor != "" {
		where = "Actor = ?"
		params.Args = append(params.Args, opts.actor)
	}

	if opts.errors {
		if where != "" {
			where += " AND "
		}

		where += "Error != ''"
	}

	params.Where = where

	return params
}

func listFirings(
	ctx context.Context,
	path string,
	opts firingsOptions,
	out io.Writer,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening a missing file would create an empty database.
	if _, err := os.Stat(path); err != nil {
		return err
	}

	r := datarecording.NewReader(path)
	defer r.Close()

	r.MapTable(datarecording.FiringTable, datarecording.FiringEntry{})

	rows, total, err := r.Query(ctx, datarecording.FiringTable,
		firingQuery(opts))
	if err != nil {
		return fmt.Errorf("cannot read firings from %s: %w", path, err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tITERATION\tINDEX\tACTOR\tERROR")

	for _, row := range rows {
		e := row.(*datarecording.FiringEntry)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			e.RunID, e.Iteration, e.Idx, e.Actor, e.Error)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d of %d firings\n", len(rows), total)

	return nil
}
