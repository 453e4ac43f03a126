package array

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arrayflow/hooking"
)

func rowMajor(x, y int) *Spec {
	return &Spec{
		Pattern: []Axis{
			{Name: "x", Extent: x, Stride: 1},
			{Name: "y", Extent: y, Stride: 1},
		},
		TokensPerData: 1,
	}
}

func shapeOf(spec *Spec) OutputShape {
	return OutputShape{
		Spec:  spec,
		Order: spec.DimensionOrder(),
		Sizes: spec.Sizes(),
	}
}

var _ = Describe("Edge", func() {
	var (
		arena *Arena
		edge  *Edge
		recv  *Receiver
	)

	BeforeEach(func() {
		arena = NewArena()
		edge = NewEdge("Producer.Out", arena)
		recv = edge.NewReceiver("Consumer.In")
	})

	It("should refuse to put before configuration", func() {
		err := edge.Put(1)

		Expect(errors.Is(err, ErrEmptyReceiver)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Producer.Out"))
		Expect(edge.HasRoom(1)).To(BeFalse())
	})

	It("should refuse to get before configuration", func() {
		_, err := recv.Get()

		Expect(errors.Is(err, ErrEmptyReceiver)).To(BeTrue())
		Expect(recv.HasToken(1)).To(BeFalse())
	})

	It("should size the buffer from the producer", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())

		Expect(edge.Configured()).To(BeTrue())
		Expect(edge.Len()).To(Equal(12))
		Expect(edge.Jumps()).To(Equal(JumpTable{"x": 1, "y": 3}))
	})

	It("should reject an order that misses a used dimension", func() {
		shape := shapeOf(rowMajor(3, 4))
		shape.Order = []string{"x"}

		err := edge.SetOutputArray(shape)

		Expect(errors.Is(err, ErrInvalidSpec)).To(BeTrue())
	})

	It("should never shrink storage", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())
		Expect(edge.SetOutputArray(shapeOf(rowMajor(2, 2)))).To(Succeed())

		Expect(edge.Len()).To(Equal(4))
		Expect(arena.Cap(edge.Handle())).To(Equal(12))
		Expect(edge.Epoch()).To(Equal(2))
	})

	Context("when configured", func() {
		BeforeEach(func() {
			Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())
			Expect(recv.SetInputArray(rowMajor(3, 4))).To(Succeed())
		})

		It("should round trip tokens in order", func() {
			for i := 0; i < 12; i++ {
				Expect(edge.HasRoom(1)).To(BeTrue())
				Expect(recv.Put(i * 10)).To(Succeed())
			}

			var got []Token
			for i := 0; i < 12; i++ {
				Expect(recv.HasToken(1)).To(BeTrue())
				tok, err := recv.Get()
				Expect(err).NotTo(HaveOccurred())
				got = append(got, tok)
			}

			Expect(got).To(Equal([]Token{
				0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110}))
		})

		It("should report no room exactly at the end of the buffer", func() {
			Expect(edge.HasRoom(12)).To(BeTrue())
			Expect(edge.HasRoom(13)).To(BeFalse())

			for i := 0; i < 12; i++ {
				Expect(edge.Put(i)).To(Succeed())
			}

			Expect(edge.HasRoom(1)).To(BeFalse())

			err := edge.Put(12)
			Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())

			var arrErr *Error
			Expect(errors.As(err, &arrErr)).To(BeTrue())
			Expect(arrErr.Address).To(Equal(12))
			Expect(arrErr.Length).To(Equal(12))
		})

		It("should report no token exactly at the end of the buffer", func() {
			for i := 0; i < 12; i++ {
				_, err := recv.Get()
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(recv.HasToken(1)).To(BeFalse())

			_, err := recv.Get()
			Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())
			Expect(recv.ReadPosition()).To(Equal(12))
		})

		It("should reset positions idempotently without touching data", func() {
			for i := 0; i < 5; i++ {
				Expect(edge.Put(i + 1)).To(Succeed())
			}
			_, _ = recv.Get()

			recv.Reset()
			once := []int{edge.WritePosition(), recv.ReadPosition()}
			snapshot := edge.Snapshot()
			recv.Reset()

			Expect(once).To(Equal([]int{0, 0}))
			Expect(edge.WritePosition()).To(Equal(0))
			Expect(recv.ReadPosition()).To(Equal(0))
			Expect(edge.Snapshot()).To(Equal(snapshot))
			Expect(snapshot[:5]).To(Equal([]Token{1, 2, 3, 4, 5}))
		})

		It("should keep content on clear", func() {
			Expect(edge.Put(7)).To(Succeed())

			recv.Clear()

			Expect(recv.Get()).To(Equal(7))
		})

		It("should let every receiver see the same buffer", func() {
			other := edge.NewReceiver("Other.In")
			Expect(other.SetInputArray(rowMajor(3, 4))).To(Succeed())

			Expect(edge.Put("a")).To(Succeed())

			Expect(recv.Get()).To(Equal("a"))
			Expect(other.Get()).To(Equal("a"))
			Expect(edge.Receivers()).To(HaveLen(2))
		})

		It("should invoke hooks on put and get", func() {
			tracer := hooking.NewCountTracer()
			edge.AcceptHook(tracer)
			recv.AcceptHook(tracer)

			Expect(edge.Put(1)).To(Succeed())
			Expect(edge.Put(2)).To(Succeed())
			_, _ = recv.Get()

			Expect(tracer.Count(HookPosPut, "Producer.Out")).To(Equal(uint64(2)))
			Expect(tracer.Count(HookPosGet, "Consumer.In")).To(Equal(uint64(1)))
		})
	})

	It("should read a transposed view through the shared jump table", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(6, 4)))).To(Succeed())
		Expect(recv.SetInputArray(&Spec{
			Pattern:       []Axis{{Name: "y", Extent: 4, Stride: 1}},
			Tiling:        []Axis{{Name: "x", Extent: 1, Stride: 1}},
			Repetitions:   []int{6},
			TokensPerData: 1,
		})).To(Succeed())

		for i := 0; i < 24; i++ {
			Expect(edge.Put(i)).To(Succeed())
		}

		var got []Token
		for i := 0; i < 8; i++ {
			tok, err := recv.Get()
			Expect(err).NotTo(HaveOccurred())
			got = append(got, tok)
		}

		Expect(got).To(Equal([]Token{0, 6, 12, 18, 1, 7, 13, 19}))
	})

	It("should start reading at the consumer's base", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())
		spec := rowMajor(1, 1)
		spec.Base = map[string]int{"x": 2, "y": 1}
		Expect(recv.SetInputArray(spec)).To(Succeed())

		for i := 0; i < 12; i++ {
			Expect(edge.Put(i)).To(Succeed())
		}

		Expect(recv.ReadLayout().Origin).To(Equal(5))
		Expect(recv.Get()).To(Equal(5))
	})

	It("should reject a consumer dimension the producer does not have", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())

		err := recv.SetInputArray(&Spec{
			Pattern:       []Axis{{Name: "z", Extent: 1, Stride: 1}},
			TokensPerData: 1,
		})

		Expect(errors.Is(err, ErrInvalidSpec)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Consumer.In"))
	})

	It("should reject mismatching tokens per data", func() {
		Expect(edge.SetOutputArray(shapeOf(rowMajor(3, 4)))).To(Succeed())
		spec := rowMajor(3, 4)
		spec.TokensPerData = 2

		err := recv.SetInputArray(spec)

		Expect(errors.Is(err, ErrInvalidSpec)).To(BeTrue())
	})
})

var _ = Describe("Receiver without pattern", func() {
	It("should read the array the way the producer writes it", func() {
		edge := NewEdge("Producer.Out", NewArena())
		recv := edge.NewReceiver("Pipeline.Out")

		Expect(edge.SetOutputArray(shapeOf(rowMajor(2, 2)))).To(Succeed())
		Expect(recv.SetInputArray(&Spec{TokensPerData: 1})).To(Succeed())

		for i := 0; i < 4; i++ {
			Expect(edge.Put(i)).To(Succeed())
		}

		for i := 0; i < 4; i++ {
			Expect(recv.Get()).To(Equal(i))
		}

		Expect(recv.HasToken(1)).To(BeFalse())
	})

	It("should read every firing of a tiled producer at once", func() {
		edge := NewEdge("Producer.Out", NewArena())
		recv := edge.NewReceiver("Consumer.In")

		producer := &Spec{
			Pattern:       []Axis{{Name: "x", Extent: 3, Stride: 1}},
			Tiling:        []Axis{{Name: "y", Extent: 1, Stride: 1}},
			Repetitions:   []int{4},
			TokensPerData: 1,
		}

		Expect(edge.SetOutputArray(shapeOf(producer))).To(Succeed())
		Expect(recv.SetInputArray(&Spec{TokensPerData: 1})).To(Succeed())
		Expect(recv.Ready()).To(Succeed())
		Expect(recv.ReadLayout().Spec.FiringSize()).To(Equal(12))

		for i := 0; i < 12; i++ {
			Expect(edge.Put(i)).To(Succeed())
		}

		for i := 0; i < 12; i++ {
			Expect(recv.Get()).To(Equal(i))
		}
	})
})
