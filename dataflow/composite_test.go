package dataflow

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arrayflow/array"
)

type stubActor struct {
	*ActorBase
	fired int
}

func newStubActor(name string, inputs, outputs []string) *stubActor {
	a := &stubActor{ActorBase: NewActorBase(name)}

	for _, n := range inputs {
		a.AddInput(n, Declaration{Pattern: "x=2"})
	}

	for _, n := range outputs {
		a.AddOutput(n, Declaration{Pattern: "x=2"})
	}

	return a
}

func (a *stubActor) Fire() error {
	a.fired++
	return nil
}

func line(n int) *array.Spec {
	return &array.Spec{
		Pattern:       []array.Axis{{Name: "x", Extent: n, Stride: 1}},
		TokensPerData: 1,
	}
}

var _ = Describe("Port", func() {
	It("should build hierarchical names", func() {
		a := newStubActor("Ramp", nil, []string{"Out"})

		Expect(a.Port("Out").Name()).To(Equal("Ramp.Out"))
	})

	It("should tell sources from sinks", func() {
		c := NewComposite("Pipeline")
		a := newStubActor("Scale", []string{"In"}, []string{"Out"})
		c.AddActor(a)
		in := c.AddInput("In", Declaration{})
		out := c.AddOutput("Out", Declaration{})

		Expect(a.Port("Out").IsSource()).To(BeTrue())
		Expect(a.Port("In").IsSource()).To(BeFalse())
		Expect(in.IsSource()).To(BeTrue())
		Expect(out.IsSource()).To(BeFalse())
		Expect(in.IsBoundary()).To(BeTrue())
		Expect(a.Port("In").Owner()).To(BeIdenticalTo(a))
		Expect(OwnerActor(in)).To(BeNil())
	})

	It("should fail on unconnected ports", func() {
		a := newStubActor("Scale", []string{"In"}, []string{"Out"})

		Expect(a.Port("Out").Put(1)).NotTo(Succeed())
		Expect(a.Port("Out").HasRoom(1)).To(BeFalse())
		Expect(a.Port("In").HasToken(1)).To(BeFalse())

		_, err := a.Port("In").TokensPerFiring()
		Expect(err).To(MatchError(ContainSubstring("not connected")))

		_, err = a.Port("Out").TokensPerFiring()
		Expect(err).To(MatchError(ContainSubstring("not connected")))
	})

	It("should panic when reading from a source", func() {
		a := newStubActor("Ramp", nil, []string{"Out"})

		Expect(func() { _, _ = a.Port("Out").Get() }).To(Panic())
	})

	It("should panic on unknown ports", func() {
		a := newStubActor("Ramp", nil, []string{"Out"})

		Expect(func() { a.Port("Nope") }).To(Panic())
	})

	It("should panic on duplicated ports", func() {
		a := newStubActor("Ramp", nil, []string{"Out"})

		Expect(func() { a.AddOutput("Out", Declaration{}) }).To(Panic())
	})
})

var _ = Describe("Composite", func() {
	var (
		c       *Composite
		src     *stubActor
		left    *stubActor
		right   *stubActor
		factory *ArenaReceiverFactory
	)

	BeforeEach(func() {
		c = NewComposite("Pipeline")
		src = newStubActor("Src", nil, []string{"Out"})
		left = newStubActor("Left", []string{"In"}, nil)
		right = newStubActor("Right", []string{"In", "Aux"}, nil)
		c.AddActor(src)
		c.AddActor(left)
		c.AddActor(right)
		factory = NewArenaReceiverFactory()
	})

	It("should refuse a second producer for a sink", func() {
		c.Connect(src.Port("Out"), left.Port("In"))

		Expect(func() {
			c.Connect(src.Port("Out"), left.Port("In"))
		}).To(Panic())
	})

	It("should refuse wrong directions", func() {
		Expect(func() {
			c.Connect(left.Port("In"), right.Port("In"))
		}).To(Panic())
		Expect(func() {
			c.Connect(src.Port("Out"), src.Port("Out"))
		}).To(Panic())
	})

	It("should refuse duplicated actors", func() {
		Expect(func() { c.AddActor(newStubActor("Src", nil, nil)) }).To(Panic())
	})

	It("should list successors once", func() {
		c.Connect(src.Port("Out"), left.Port("In"))
		c.Connect(src.Port("Out"), right.Port("In"))
		c.Connect(src.Port("Out"), right.Port("Aux"))

		Expect(c.Successors(src)).To(Equal([]Actor{left, right}))
		Expect(c.Successors(left)).To(BeEmpty())
		Expect(c.Consumers(src.Port("Out"))).To(HaveLen(3))
		Expect(c.Producer(right.Port("Aux"))).To(BeIdenticalTo(src.Port("Out")))
	})

	It("should not count boundary ports as successors", func() {
		out := c.AddOutput("Out", Declaration{})
		c.Connect(src.Port("Out"), out)

		Expect(c.Successors(src)).To(BeEmpty())
		Expect(c.SinkPorts()).To(Equal([]*Port{
			left.Port("In"), right.Port("In"), right.Port("Aux"), out,
		}))
	})

	It("should share one edge between all consumers", func() {
		c.Connect(src.Port("Out"), left.Port("In"))
		c.Connect(src.Port("Out"), right.Port("In"))
		c.CreateReceivers(factory)

		edge := src.Port("Out").Edge()
		Expect(edge).NotTo(BeNil())
		Expect(c.Edges()).To(ConsistOf(edge))
		Expect(c.Receivers()).To(HaveLen(2))
		Expect(left.Port("In").Receiver().Edge()).To(BeIdenticalTo(edge))
		Expect(right.Port("Aux").Receiver()).To(BeNil())

		Expect(edge.SetOutputArray(array.OutputShape{
			Spec:  line(2),
			Order: []string{"x"},
			Sizes: map[string]int{"x": 2},
		})).To(Succeed())
		Expect(left.Port("In").Receiver().SetInputArray(line(2))).To(Succeed())
		Expect(right.Port("In").Receiver().SetInputArray(line(2))).To(Succeed())

		Expect(src.Port("Out").TokensPerFiring()).To(Equal(2))
		Expect(src.Port("Out").Put("a")).To(Succeed())
		Expect(src.Port("Out").Put("b")).To(Succeed())
		Expect(src.Port("Out").HasRoom(1)).To(BeFalse())

		for _, p := range []*Port{left.Port("In"), right.Port("In")} {
			Expect(p.TokensPerFiring()).To(Equal(2))
			Expect(p.HasToken(2)).To(BeTrue())
			Expect(p.Get()).To(Equal("a"))
			Expect(p.Get()).To(Equal("b"))
		}
	})

	It("should replace receivers when created again", func() {
		c.Connect(src.Port("Out"), left.Port("In"))
		c.CreateReceivers(factory)
		first := left.Port("In").Receiver()

		c.CreateReceivers(factory)

		Expect(left.Port("In").Receiver()).NotTo(BeIdenticalTo(first))
		Expect(factory.Arena.NumBuffers()).To(Equal(2))
	})

	It("should find ports by full name", func() {
		in := c.AddInput("In", Declaration{})

		Expect(c.MustFindPort("Pipeline.In")).To(BeIdenticalTo(in))
		Expect(c.MustFindPort("Right.Aux")).To(BeIdenticalTo(right.Port("Aux")))
		_, err := c.FindPort("Right.Nope")
		Expect(err).To(HaveOccurred())
		Expect(c.Actor("Left")).To(BeIdenticalTo(left))
	})
})
