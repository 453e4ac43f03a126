package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/hooking"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
	Field5 map[string]int
}

type ramp struct {
	*dataflow.ActorBase
	out *dataflow.Port
}

func (a *ramp) Fire() error {
	n, err := a.out.TokensPerFiring()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := a.out.Put(i); err != nil {
			return err
		}
	}

	return nil
}

type drain struct {
	*dataflow.ActorBase
	in *dataflow.Port
}

func (a *drain) Fire() error {
	n, err := a.in.TokensPerFiring()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if _, err := a.in.Get(); err != nil {
			return err
		}
	}

	return nil
}

func newPipeline() *director.Director {
	src := &ramp{ActorBase: dataflow.NewActorBase("Src")}
	src.out = src.AddOutput("Out", dataflow.Declaration{Pattern: "x=4,y=2"})

	sink := &drain{ActorBase: dataflow.NewActorBase("Sink")}
	sink.SetRepetitions("[2]")
	sink.in = sink.AddInput("In", dataflow.Declaration{
		Pattern: "x=4",
		Tiling:  "y=1",
	})

	c := dataflow.NewComposite("Pipeline")
	c.AddActor(src)
	c.AddActor(sink)
	c.Connect(src.out, sink.in)

	return director.MakeBuilder().Build("Director", c)
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			Field1: 1,
		}

		elem, err := m.walkFields(s, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			Field2: "abc",
		}

		elem, err := m.walkFields(s, "Field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{
			Field3: &sampleStruct{},
		}

		elem, err := m.walkFields(s, "Field3")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{
					{Field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk map entries", func() {
		s := &sampleStruct{
			Field5: map[string]int{"x": 6},
		}

		elem, err := m.walkFields(s, "Field5.x")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(6)))
	})

	It("should report missing fields and bad indices", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "Missing")
		Expect(err).To(MatchError(ContainSubstring("no such field")))

		_, err = m.walkFields(s, "Field4.3")
		Expect(err).To(MatchError(ContainSubstring("bad index")))

		_, err = m.walkFields(s, "Field1.x")
		Expect(err).To(MatchError(ContainSubstring("cannot walk into int")))
	})

	It("should ignore low port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(32776)
		Expect(m.portNumber).To(Equal(32776))
	})

	It("should add and remove progress bars", func() {
		a := m.CreateProgressBar("a", 10)
		b := m.CreateProgressBar("b", 20)
		Expect(a.ID).NotTo(Equal(b.ID))

		m.CompleteProgressBar(a)

		Expect(m.progressBars).To(ConsistOf(b))
	})

	It("should page edges", func() {
		m.edges = map[string]array.EdgeState{
			"A.Out": {Name: "A.Out", WritePosition: 2, Length: 4},
			"B.Out": {Name: "B.Out", WritePosition: 3, Length: 12},
			"C.Out": {Name: "C.Out", WritePosition: 1, Length: 1},
		}
		m.edgeNames = []string{"C.Out", "A.Out", "B.Out"}

		names := func(states []array.EdgeState) []string {
			var n []string
			for _, s := range states {
				n = append(n, s.Name)
			}

			return n
		}

		Expect(names(m.sortAndSelectEdges("name", 0, 0))).
			To(Equal([]string{"A.Out", "B.Out", "C.Out"}))
		Expect(names(m.sortAndSelectEdges("level", 2, 0))).
			To(Equal([]string{"B.Out", "A.Out"}))
		Expect(names(m.sortAndSelectEdges("percent", 0, 1))).
			To(Equal([]string{"A.Out", "B.Out"}))
		Expect(m.sortAndSelectEdges("name", 0, 5)).To(BeEmpty())
	})

	Context("when following a director", func() {
		var (
			d      *director.Director
			router http.Handler
		)

		get := func(path string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			router.ServeHTTP(rec, req)

			return rec
		}

		BeforeEach(func() {
			d = newPipeline()
			m.RegisterDirector(d)
			router = m.Router()
		})

		It("should track progress while running", func() {
			var seen []uint64

			bars := hooking.HookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos != director.HookPosAfterFiring {
					return
				}

				Expect(m.progressBars).To(HaveLen(1))
				seen = append(seen, m.progressBars[0].snapshot().Finished)
			})
			d.AcceptHook(&bars)

			Expect(d.Run(context.Background(), 2)).To(Succeed())

			Expect(seen).To(Equal([]uint64{1, 2, 3, 4, 5, 6}))
			Expect(m.progressBars).To(BeEmpty())
		})

		It("should serve the schedule", func() {
			Expect(d.Run(context.Background(), 1)).To(Succeed())

			rec := get("/api/schedule")
			Expect(rec.Code).To(Equal(http.StatusOK))

			rsp := scheduleRsp{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
			Expect(rsp.Director).To(Equal("Director"))
			Expect(rsp.RunID).To(Equal(d.RunID()))
			Expect(rsp.Text).To(Equal("Src(1) Sink(2)"))
			Expect(rsp.Firings).To(Equal([]firingRsp{
				{Actor: "Src", Iterations: 1},
				{Actor: "Sink", Iterations: 2},
			}))
		})

		It("should report a missing schedule", func() {
			rec := get("/api/schedule?director=Other")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should list directors", func() {
			rec := get("/api/directors")
			Expect(rec.Body.String()).To(MatchJSON(`["Director"]`))
		})

		It("should list edges", func() {
			Expect(d.Run(context.Background(), 1)).To(Succeed())

			rec := get("/api/edges?sort=level")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`[{
				"edge": "Src.Out",
				"mode": "static",
				"epoch": 1,
				"written": 8,
				"length": 8,
				"receivers": 1
			}]`))
		})

		It("should reject bad edge queries", func() {
			Expect(get("/api/edges?sort=size").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/edges?limit=abc").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/edges?offset=-1").Code).
				To(Equal(http.StatusBadRequest))
		})

		It("should serialize one edge", func() {
			Expect(d.Run(context.Background(), 1)).To(Succeed())

			rec := get("/api/edge/Src.Out")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Src.Out"))

			Expect(get("/api/edge/Nope.Out").Code).
				To(Equal(http.StatusNotFound))
		})

		It("should serve edge fields", func() {
			Expect(d.Run(context.Background(), 1)).To(Succeed())

			req := url.PathEscape(
				`{"edge_name":"Src.Out","field_name":"Receivers.0.ReadPosition"}`)
			rec := get("/api/field/" + req)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("8"))

			req = url.PathEscape(
				`{"edge_name":"Src.Out","field_name":"Sizes.y"}`)
			Expect(get("/api/field/" + req).Body.String()).To(Equal("2"))

			req = url.PathEscape(
				`{"edge_name":"Src.Out","field_name":"Nothing"}`)
			Expect(get("/api/field/" + req).Code).
				To(Equal(http.StatusBadRequest))
		})

		It("should serve the web page", func() {
			rec := get("/")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("arrayflow monitor"))
		})
	})
})
