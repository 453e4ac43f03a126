package scheduling

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/metadata"
)

type stubActor struct {
	*dataflow.ActorBase
}

func (a *stubActor) Fire() error { return nil }

func newStub(name, reps string) *stubActor {
	a := &stubActor{ActorBase: dataflow.NewActorBase(name)}
	a.SetRepetitions(reps)

	return a
}

var _ = Describe("Scheduler", func() {
	var (
		c       *dataflow.Composite
		factory *dataflow.ArenaReceiverFactory
	)

	BeforeEach(func() {
		c = dataflow.NewComposite("Pipeline")
		factory = dataflow.NewArenaReceiverFactory()
	})

	Context("with declared metadata", func() {
		var (
			a, b, cc  *stubActor
			scheduler *Scheduler
		)

		BeforeEach(func() {
			provider := metadata.NewProvider()
			scheduler = NewScheduler(provider, provider)

			a = newStub("A", "")
			a.AddOutput("Out", dataflow.Declaration{Pattern: "x=4"})
			b = newStub("B", "[2]")
			b.AddInput("In", dataflow.Declaration{Pattern: "x=2", Tiling: "x=2"})
			b.AddOutput("Out", dataflow.Declaration{Pattern: "x=1", Tiling: "x=1"})
			cc = newStub("C", "")
			cc.AddInput("In", dataflow.Declaration{Pattern: "x=2"})

			c.AddActor(cc)
			c.AddActor(b)
			c.AddActor(a)
			c.Connect(a.Port("Out"), b.Port("In"))
			c.Connect(b.Port("Out"), cc.Port("In"))
			c.CreateReceivers(factory)
		})

		It("should order producers before consumers", func() {
			schedule, err := scheduler.BuildSchedule(c)

			Expect(err).NotTo(HaveOccurred())
			Expect(schedule.Firings).To(HaveLen(3))
			Expect(schedule.Firings[0].Actor).To(BeIdenticalTo(a))
			Expect(schedule.Firings[1].Actor).To(BeIdenticalTo(b))
			Expect(schedule.Firings[2].Actor).To(BeIdenticalTo(cc))
			Expect(schedule.Firings[1].Iterations).To(Equal(2))
			Expect(schedule.TotalFirings()).To(Equal(4))
			Expect(schedule.String()).To(Equal("A(1) B(2) C(1)"))
		})

		It("should configure every edge", func() {
			_, err := scheduler.BuildSchedule(c)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Port("Out").Edge().Len()).To(Equal(4))
			Expect(b.Port("Out").Edge().Len()).To(Equal(2))
			Expect(b.Port("In").TokensPerFiring()).To(Equal(2))

			for i := 0; i < 4; i++ {
				Expect(a.Port("Out").Put(i)).To(Succeed())
			}

			for i := 0; i < 4; i++ {
				Expect(b.Port("In").Get()).To(Equal(i))
			}
		})

		It("should install dynamic edges", func() {
			a.Port("Out").SetDeclaration(dataflow.Declaration{Dynamic: true})

			_, err := scheduler.BuildSchedule(c)

			Expect(err).NotTo(HaveOccurred())
			Expect(a.Port("Out").Edge().Mode()).To(Equal(array.Dynamic))
			Expect(b.Port("Out").Edge().Mode()).To(Equal(array.Static))
		})

		It("should reject cycles", func() {
			loop := newStub("Loop", "")
			loop.AddInput("In", dataflow.Declaration{Pattern: "x=1"})
			loop.AddOutput("Out", dataflow.Declaration{Pattern: "x=1"})
			c.AddActor(loop)
			c.Connect(loop.Port("Out"), loop.Port("In"))
			c.CreateReceivers(factory)

			_, err := scheduler.BuildSchedule(c)

			Expect(errors.Is(err, ErrNotSchedulable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Loop"))
			Expect(err.Error()).To(ContainSubstring("cycle"))
		})

		It("should reject unconnected inputs", func() {
			lonely := newStub("Lonely", "")
			lonely.AddInput("In", dataflow.Declaration{Pattern: "x=1"})
			c.AddActor(lonely)

			_, err := scheduler.BuildSchedule(c)

			var schedErr *ScheduleError
			Expect(errors.As(err, &schedErr)).To(BeTrue())
			Expect(schedErr.Where).To(Equal("Lonely.In"))
		})

		It("should reject consumers reading unknown dimensions", func() {
			cc.Port("In").SetDeclaration(dataflow.Declaration{Pattern: "y=2"})

			_, err := scheduler.BuildSchedule(c)

			Expect(errors.Is(err, ErrNotSchedulable)).To(BeTrue())
			Expect(errors.Is(err, array.ErrInvalidSpec)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("C.In"))
		})

		It("should fail before receivers are created", func() {
			c = dataflow.NewComposite("Other")
			solo := newStub("Solo", "")
			solo.AddOutput("Out", dataflow.Declaration{Pattern: "x=1"})
			c.AddActor(solo)
			sink := c.AddOutput("Out", dataflow.Declaration{})
			c.Connect(solo.Port("Out"), sink)

			_, err := scheduler.BuildSchedule(c)

			Expect(err).To(MatchError(ContainSubstring("receivers are not created")))
		})
	})

	Context("with mocked providers", func() {
		var (
			mockCtrl   *gomock.Controller
			meta       *MockMetadataProvider
			iterations *MockIterationProvider
			scheduler  *Scheduler
			x          *stubActor
			in, out    *dataflow.Port
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			meta = NewMockMetadataProvider(mockCtrl)
			iterations = NewMockIterationProvider(mockCtrl)
			scheduler = NewScheduler(meta, iterations)

			x = newStub("X", "")
			x.AddInput("In", dataflow.Declaration{})
			x.AddOutput("Out", dataflow.Declaration{})
			c.AddActor(x)

			in = c.AddInput("In", dataflow.Declaration{})
			out = c.AddOutput("Out", dataflow.Declaration{})
			c.Connect(in, x.Port("In"))
			c.Connect(x.Port("Out"), out)
			c.CreateReceivers(factory)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		expectRates := func(outSize int) {
			meta.EXPECT().ArraySize(x.Port("Out")).Return(outSize, nil)
			meta.EXPECT().TokensPerData(x.Port("Out")).Return(1, nil)
			meta.EXPECT().Dependencies(x.Port("Out")).
				Return([]string{"X.Out.pattern", "X.repetitions"})
			meta.EXPECT().Dependencies(out).
				Return([]string{"Pipeline.Out.pattern"})
		}

		It("should declare boundary rates", func() {
			meta.EXPECT().ArraySize(in).Return(12, nil)
			meta.EXPECT().TokensPerData(in).Return(2, nil)
			meta.EXPECT().Dependencies(in).Return([]string{"Pipeline.In.pattern"})
			expectRates(6)

			decls, err := scheduler.DeclareRates(c)

			Expect(err).NotTo(HaveOccurred())
			Expect(decls).To(HaveLen(2))
			Expect(decls[0].Port).To(BeIdenticalTo(in))
			Expect(decls[0].Kind).To(Equal(Consumption))
			Expect(decls[0].Rate).To(Equal(24))
			Expect(decls[1].Port).To(BeIdenticalTo(out))
			Expect(decls[1].Kind).To(Equal(Production))
			Expect(decls[1].Rate).To(Equal(6))
			Expect(decls[1].DependsOn).To(ContainElement("Pipeline.Out.pattern"))
		})

		It("should track and refresh dependent rates", func() {
			meta.EXPECT().ArraySize(in).Return(12, nil)
			meta.EXPECT().TokensPerData(in).Return(1, nil)
			meta.EXPECT().Dependencies(in).Return([]string{"Pipeline.In.pattern"})
			expectRates(6)

			_, err := scheduler.DeclareRates(c)
			Expect(err).NotTo(HaveOccurred())

			rates := scheduler.Rates()
			Expect(rates.DependentsOf("X.repetitions")).To(HaveLen(1))
			Expect(rates.DependentsOf("Unknown.param")).To(BeEmpty())

			expectRates(18)
			redone, err := scheduler.Redeclare(c, "X.repetitions")

			Expect(err).NotTo(HaveOccurred())
			Expect(redone).To(HaveLen(1))
			Expect(redone[0].Rate).To(Equal(18))
			rate, found := rates.Rate("Pipeline.In")
			Expect(found).To(BeTrue())
			Expect(rate).To(Equal(12))
		})

		It("should invalidate dependent rates", func() {
			meta.EXPECT().ArraySize(in).Return(12, nil)
			meta.EXPECT().TokensPerData(in).Return(1, nil)
			meta.EXPECT().Dependencies(in).Return([]string{"Pipeline.In.pattern"})
			expectRates(6)

			_, err := scheduler.DeclareRates(c)
			Expect(err).NotTo(HaveOccurred())

			names := scheduler.Rates().Invalidate("X.Out.pattern")

			Expect(names).To(Equal([]string{"Pipeline.Out"}))
			_, found := scheduler.Rates().Rate("Pipeline.Out")
			Expect(found).To(BeFalse())
			Expect(scheduler.Rates().Declarations()).To(HaveLen(1))
		})

		It("should name the port when metadata is missing", func() {
			meta.EXPECT().IsDynamic(in).Return(false)
			meta.EXPECT().Base(in).Return(nil, errors.New("no base"))

			_, err := scheduler.BuildSchedule(c)

			Expect(errors.Is(err, ErrNotSchedulable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Pipeline.In"))
			Expect(err.Error()).To(ContainSubstring("no base"))
		})

		It("should report rate errors", func() {
			meta.EXPECT().ArraySize(in).Return(0, errors.New("no size"))

			_, err := scheduler.DeclareRates(c)

			Expect(errors.Is(err, ErrNotSchedulable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no size"))
		})
	})

	It("should report iteration errors", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		iterations := NewMockIterationProvider(mockCtrl)
		scheduler := NewScheduler(metadata.NewProvider(), iterations)

		solo := newStub("Solo", "")
		c.AddActor(solo)
		iterations.EXPECT().IterationCount(solo).Return(0, errors.New("bad"))

		_, err := scheduler.BuildSchedule(c)

		var schedErr *ScheduleError
		Expect(errors.As(err, &schedErr)).To(BeTrue())
		Expect(schedErr.Where).To(Equal("Solo"))
	})

	Context("with a dynamic producer", func() {
		var (
			d, cc     *stubActor
			scheduler *Scheduler
		)

		BeforeEach(func() {
			provider := metadata.NewProvider()
			scheduler = NewScheduler(provider, provider)

			d = newStub("D", "")
			d.AddOutput("Out", dataflow.Declaration{Dynamic: true})
			cc = newStub("C", "")
			cc.AddInput("In", dataflow.Declaration{Pattern: "x=2", Base: "x=1"})

			c.AddActor(cc)
			c.AddActor(d)
			c.Connect(d.Port("Out"), cc.Port("In"))
			c.CreateReceivers(factory)
		})

		writeArray := func() *array.Edge {
			edge := d.Port("Out").Edge()
			for _, t := range []array.Token{1, 1, "x", 2, "p", "q"} {
				Expect(edge.Put(t)).To(Succeed())
			}

			return edge
		}

		It("should write where the consumer reads", func() {
			_, err := scheduler.BuildSchedule(c)
			Expect(err).NotTo(HaveOccurred())

			edge := writeArray()

			Expect(edge.WriteLayout().Origin).To(Equal(1))
			Expect(cc.Port("In").Get()).To(Equal("p"))
		})

		It("should follow a changed base after rescheduling", func() {
			_, err := scheduler.BuildSchedule(c)
			Expect(err).NotTo(HaveOccurred())
			writeArray()

			cc.Port("In").SetDeclaration(dataflow.Declaration{Pattern: "x=2"})
			_, err = scheduler.BuildSchedule(c)
			Expect(err).NotTo(HaveOccurred())

			edge := writeArray()

			Expect(edge.WriteLayout().Origin).To(Equal(0))
			Expect(cc.Port("In").Get()).To(Equal("p"))
			Expect(cc.Port("In").Get()).To(Equal("q"))
		})
	})
})
