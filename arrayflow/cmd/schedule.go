package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/arrayflow/config"
	"github.com/sarchlab/arrayflow/director"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule graph.json",
		Short: "Print the static schedule and the buffers of a graph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSchedule(args[0], cmd.OutOrStdout())
		},
	}
}

func printSchedule(path string, out io.Writer) error {
	g, err := config.Load(path)
	if err != nil {
		return err
	}

	c, err := g.Build(config.DefaultRegistry())
	if err != nil {
		return err
	}

	d := director.MakeBuilder().Build("Director", c)
	if err := d.Initialize(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Schedule: %s\n", d.Schedule())
	fmt.Fprintf(out, "Firings per iteration: %d\n\n",
		d.Schedule().TotalFirings())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EDGE\tMODE\tDIMENSIONS\tLENGTH\tRECEIVERS")

	for _, e := range c.Edges() {
		dims := make([]string, 0, len(e.Order()))
		for _, name := range e.Order() {
			dims = append(dims, fmt.Sprintf("%s=%d", name, e.Sizes()[name]))
		}

		if len(dims) == 0 {
			dims = append(dims, "-")
		}

		receivers := make([]string, 0, len(e.Receivers()))
		for _, r := range e.Receivers() {
			receivers = append(receivers, r.Name())
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Name(), e.Mode(), strings.Join(dims, ","), e.Len(),
			strings.Join(receivers, ","))
	}

	return w.Flush()
}
