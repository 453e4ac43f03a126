package metadata

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arrayflow/array"
)

var _ = Describe("Parse", func() {
	It("should parse patterns with and without strides", func() {
		axes, err := ParsePattern("x=3.1, y=4.2,z=5")

		Expect(err).NotTo(HaveOccurred())
		Expect(axes).To(Equal([]array.Axis{
			{Name: "x", Extent: 3, Stride: 1},
			{Name: "y", Extent: 4, Stride: 2},
			{Name: "z", Extent: 5, Stride: 1},
		}))
	})

	It("should accept braces and empty declarations", func() {
		axes, err := ParsePattern("{x=2.1}")
		Expect(err).NotTo(HaveOccurred())
		Expect(axes).To(HaveLen(1))

		axes, err = ParseTiling("")
		Expect(err).NotTo(HaveOccurred())
		Expect(axes).To(BeEmpty())
	})

	It("should parse tilings as strides", func() {
		axes, err := ParseTiling("x=3,y=4")

		Expect(err).NotTo(HaveOccurred())
		Expect(axes).To(Equal([]array.Axis{
			{Name: "x", Extent: 1, Stride: 3},
			{Name: "y", Extent: 1, Stride: 4},
		}))
	})

	It("should parse bases", func() {
		base, err := ParseBase("x=1,y=2")

		Expect(err).NotTo(HaveOccurred())
		Expect(base).To(Equal(map[string]int{"x": 1, "y": 2}))
	})

	It("should keep the order of declared sizes", func() {
		order, sizes, err := ParseSizes("y=4,x=6")

		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(Equal([]string{"y", "x"}))
		Expect(sizes).To(Equal(map[string]int{"x": 6, "y": 4}))
	})

	It("should parse repetitions", func() {
		Expect(ParseRepetitions("[2, 3]")).To(Equal([]int{2, 3}))
		Expect(ParseRepetitions("4")).To(Equal([]int{4}))
		Expect(ParseRepetitions("")).To(BeEmpty())
	})

	It("should parse dimension orders", func() {
		Expect(ParseDimensions("y, x")).To(Equal([]string{"y", "x"}))
	})

	DescribeTable("should reject malformed declarations",
		func(parse func() error) {
			Expect(parse()).To(HaveOccurred())
		},
		Entry("missing value", func() error {
			_, err := ParsePattern("x=")
			return err
		}),
		Entry("missing equal sign", func() error {
			_, err := ParsePattern("x")
			return err
		}),
		Entry("non-numeric stride", func() error {
			_, err := ParsePattern("x=3.a")
			return err
		}),
		Entry("repeated dimension", func() error {
			_, err := ParseTiling("x=1,x=2")
			return err
		}),
		Entry("non-numeric base", func() error {
			_, err := ParseBase("x=one")
			return err
		}),
		Entry("zero size", func() error {
			_, _, err := ParseSizes("x=0")
			return err
		}),
		Entry("zero repetition", func() error {
			_, err := ParseRepetitions("[2,0]")
			return err
		}),
	)
})
