package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/metadata"
)

type addressOptions struct {
	base          string
	pattern       string
	tiling        string
	repetitions   string
	tokensPerData int
	sizes         string
	count         int
}

func newAddressCmd() *cobra.Command {
	opts := addressOptions{}

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Print the buffer offsets a port accesses.",
		Long: `Print the buffer offsets a port accesses, one line per token. ` +
			`Without --sizes, the array is the one the port covers by itself.`,
		Example: `  arrayflow address --pattern "x=2,y=2" --tiling "x=2" ` +
			`--repetitions "[3]"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printAddresses(opts, cmd.OutOrStdout())
		},
	}

	flags := addressCmd.Flags()
	flags.StringVar(&opts.base, "base", "", `window start, e.g. "x=1"`)
	flags.StringVar(&opts.pattern, "pattern", "",
		`per-firing footprint, e.g. "x=3.1,y=4.1"`)
	flags.StringVar(&opts.tiling, "tiling", "",
		`movement between firings, e.g. "x=3"`)
	flags.StringVar(&opts.repetitions, "repetitions", "",
		`firings per tiling axis, e.g. "[2]"`)
	flags.IntVar(&opts.tokensPerData, "tokens-per-data", 1,
		"tokens in one array element")
	flags.StringVar(&opts.sizes, "sizes", "",
		`array sizes in storage order, e.g. "x=6,y=4"`)
	flags.IntVar(&opts.count, "count", 0,
		"number of tokens, defaults to all firings")

	if err := addressCmd.MarkFlagRequired("pattern"); err != nil {
		panic(err)
	}

	return addressCmd
}

func (o addressOptions) spec() (*array.Spec, error) {
	base, err := metadata.ParseBase(o.base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}

	pattern, err := metadata.ParsePattern(o.pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}

	tiling, err := metadata.ParseTiling(o.tiling)
	if err != nil {
		return nil, fmt.Errorf("tiling: %w", err)
	}

	reps, err := metadata.ParseRepetitions(o.repetitions)
	if err != nil {
		return nil, fmt.Errorf("repetitions: %w", err)
	}

	for len(tiling) < len(reps) {
		tiling = append(tiling, array.Axis{Name: array.EmptyDimension, Extent: 1})
	}

	for len(reps) < len(tiling) {
		reps = append(reps, 1)
	}

	spec := &array.Spec{
		Base:          base,
		Pattern:       pattern,
		Tiling:        tiling,
		Repetitions:   reps,
		TokensPerData: o.tokensPerData,
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

func printAddresses(opts addressOptions, out io.Writer) error {
	spec, err := opts.spec()
	if err != nil {
		return err
	}

	order, sizes := spec.DimensionOrder(), spec.Sizes()
	if opts.sizes != "" {
		order, sizes, err = metadata.ParseSizes(opts.sizes)
		if err != nil {
			return fmt.Errorf("sizes: %w", err)
		}
	}

	jumps := array.ComputeJumpTable(order, sizes)
	if missing := jumps.Missing(spec); missing != "" {
		return fmt.Errorf("dimension %q has no size", missing)
	}

	length := spec.TokensPerData
	for _, d := range order {
		length *= sizes[d]
	}

	count := opts.count
	if count <= 0 {
		count = spec.FiringSize() * spec.TotalRepetitions()
	}

	layout := array.NewLayout(spec, jumps)
	firingSize := spec.FiringSize()

	for pos := 0; pos < count; pos++ {
		addr := layout.Address(pos)

		note := ""
		if addr < 0 || addr >= length {
			note = " out of range"
		}

		fmt.Fprintf(out, "firing %d token %d -> %d%s\n",
			pos/firingSize, pos%firingSize, addr, note)
	}

	return nil
}
