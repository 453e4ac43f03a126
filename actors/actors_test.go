package actors_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arrayflow/actors"
	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/director"
)

func run(c *dataflow.Composite, iterations int) error {
	d := director.MakeBuilder().Build("Director", c)
	return d.Run(context.Background(), iterations)
}

func floats(values ...float64) []array.Token {
	tokens := make([]array.Token, len(values))
	for i, v := range values {
		tokens[i] = v
	}

	return tokens
}

var _ = Describe("Actors", func() {
	var c *dataflow.Composite

	BeforeEach(func() {
		c = dataflow.NewComposite("Pipeline")
	})

	It("should ramp across iterations", func() {
		src := actors.MakeRampBuilder().
			WithOutput(dataflow.Declaration{Pattern: "x=3,y=2"}).
			Build("Src")
		sink := actors.NewCollector("Sink", "",
			dataflow.Declaration{Pattern: "x=3,y=2"})

		c.AddActor(src)
		c.AddActor(sink)
		c.Connect(src.Out, sink.In)

		Expect(run(c, 2)).To(Succeed())

		Expect(sink.Iterations()).To(Equal([][]array.Token{
			floats(0, 1, 2, 3, 4, 5),
			floats(6, 7, 8, 9, 10, 11),
		}))
	})

	It("should start and step ramps", func() {
		src := actors.MakeRampBuilder().
			WithOutput(dataflow.Declaration{Pattern: "x=2", Tiling: "x=2"}).
			WithRepetitions("[2]").
			WithStart(10).
			WithStep(-0.5).
			Build("Src")
		sink := actors.NewCollector("Sink", "",
			dataflow.Declaration{Pattern: "x=4"})

		c.AddActor(src)
		c.AddActor(sink)
		c.Connect(src.Out, sink.In)

		Expect(run(c, 1)).To(Succeed())

		Expect(sink.Tokens()).To(Equal(floats(10, 9.5, 9, 8.5)))
	})

	It("should collect the whole array without a pattern", func() {
		src := actors.MakeRampBuilder().
			WithOutput(dataflow.Declaration{Pattern: "x=3", Tiling: "y=1"}).
			WithRepetitions("[4]").
			Build("Src")
		sink := actors.NewCollector("Sink", "", dataflow.Declaration{})

		c.AddActor(src)
		c.AddActor(sink)
		c.Connect(src.Out, sink.In)

		Expect(run(c, 1)).To(Succeed())

		Expect(sink.Iterations()).To(Equal([][]array.Token{
			floats(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11),
		}))
	})

	It("should scale", func() {
		src := actors.MakeRampBuilder().
			WithOutput(dataflow.Declaration{Pattern: "x=4"}).
			Build("Src")
		scale := actors.NewScale("Scale", 2,
			dataflow.Declaration{Pattern: "x=4"},
			dataflow.Declaration{Pattern: "x=4"})
		sink := actors.NewCollector("Sink", "",
			dataflow.Declaration{Pattern: "x=4"})

		c.AddActor(src)
		c.AddActor(scale)
		c.AddActor(sink)
		c.Connect(src.Out, scale.In)
		c.Connect(scale.Out, sink.In)

		Expect(run(c, 1)).To(Succeed())

		Expect(sink.Tokens()).To(Equal(floats(0, 2, 4, 6)))
	})

	It("should transpose", func() {
		src := actors.MakeRampBuilder().
			WithOutput(dataflow.Declaration{Pattern: "x=3,y=2"}).
			Build("Src")
		tr := actors.NewTranspose("Transpose", "x", "y", 3, 2)
		sink := actors.NewCollector("Sink", "",
			dataflow.Declaration{Pattern: "y=2,x=3"})

		c.AddActor(src)
		c.AddActor(tr)
		c.AddActor(sink)
		c.Connect(src.Out, tr.In)
		c.Connect(tr.Out, sink.In)

		Expect(run(c, 1)).To(Succeed())

		Expect(tr.Out.Edge().Order()).To(Equal([]string{"y", "x"}))
		Expect(sink.Tokens()).To(Equal(floats(0, 3, 1, 4, 2, 5)))
	})

	It("should send a new shape every iteration", func() {
		src := actors.MakeShapedRampBuilder().
			WithShapes(
				array.Shape{TokensPerData: 1, Dims: []array.DimSize{
					{Name: "x", Size: 3}, {Name: "y", Size: 2},
				}},
				array.Shape{TokensPerData: 1, Dims: []array.DimSize{
					{Name: "x", Size: 2}, {Name: "y", Size: 2},
				}},
			).
			Build("Src")
		sink := actors.NewCollector("Sink", "", dataflow.Declaration{})

		c.AddActor(src)
		c.AddActor(sink)
		c.Connect(src.Out, sink.In)

		Expect(run(c, 3)).To(Succeed())

		Expect(sink.Iterations()).To(Equal([][]array.Token{
			floats(0, 1, 2, 3, 4, 5),
			floats(0, 1, 2, 3),
			floats(0, 1, 2, 3, 4, 5),
		}))

		shape, ok := sink.In.Receiver().Shape()
		Expect(ok).To(BeTrue())
		Expect(shape.Dims).To(Equal([]array.DimSize{
			{Name: "x", Size: 3}, {Name: "y", Size: 2},
		}))
	})

	It("should refuse shaped ramps without shapes", func() {
		Expect(func() {
			actors.MakeShapedRampBuilder().Build("Src")
		}).To(Panic())
	})

	It("should fail to scale non-numeric tokens", func() {
		src := &textSource{ActorBase: dataflow.NewActorBase("Src")}
		src.out = src.AddOutput("Out", dataflow.Declaration{Pattern: "x=1"})
		scale := actors.NewScale("Scale", 2,
			dataflow.Declaration{Pattern: "x=1"},
			dataflow.Declaration{Pattern: "x=1"})
		sink := actors.NewCollector("Sink", "",
			dataflow.Declaration{Pattern: "x=1"})

		c.AddActor(src)
		c.AddActor(scale)
		c.AddActor(sink)
		c.Connect(src.out, scale.In)
		c.Connect(scale.Out, sink.In)

		err := run(c, 1)

		var firingErr *director.FiringError
		Expect(errors.As(err, &firingErr)).To(BeTrue())
		Expect(firingErr.Actor).To(Equal("Scale"))
		Expect(err).To(MatchError(ContainSubstring("not a number")))
	})

	It("should refuse collectors with bad repetitions", func() {
		sink := actors.NewCollector("Sink", "[x]", dataflow.Declaration{})
		Expect(sink.Initialize()).NotTo(Succeed())
	})
})

type textSource struct {
	*dataflow.ActorBase
	out *dataflow.Port
}

func (a *textSource) Fire() error {
	return a.out.Put("one")
}
