package vm

import (
	"bytes"
	"context"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gosubleq/pkg/image"
	"gosubleq/pkg/word"
)

func imageOf(width word.Width, cells ...int64) *image.Image {
	img := image.New(len(cells), width)
	copy(img.Cells, cells)
	return img
}

// subtractThenHalt: mem[7] -= mem[6], then the halt triple at 3.
func subtractThenHalt() *image.Image {
	return imageOf(word.W64,
		6, 7, 3,
		8, 8, -1,
		5, 12, 0,
	)
}

var _ = Describe("Machine", func() {
	It("should pad memory but never truncate the image", func() {
		m := New(subtractThenHalt(), 100)
		Expect(m.Memory).To(HaveLen(100))
		Expect(m.Memory[:9]).To(Equal(subtractThenHalt().Cells))

		m = New(subtractThenHalt(), 4)
		Expect(m.Memory).To(HaveLen(9))
	})

	It("should subtract and fall through on a positive result", func() {
		m := New(subtractThenHalt(), 0)
		m.Step()
		Expect(m.Memory[7]).To(Equal(int64(7)))
		Expect(m.PC).To(Equal(int64(3)))
		Expect(m.Halted).To(BeFalse())
	})

	It("should branch on a non-positive result and halt out of bounds", func() {
		m := New(subtractThenHalt(), 0)
		Expect(m.Run(0)).To(Succeed())
		Expect(m.Halted).To(BeTrue())
		Expect(m.Steps).To(Equal(int64(2)))
		Expect(m.PC).To(Equal(int64(-1)))
		Expect(m.Memory[8]).To(Equal(int64(0)))
	})

	It("should halt when the triple runs past memory", func() {
		m := New(imageOf(word.W64, 0, 0), 0)
		m.Step()
		Expect(m.Halted).To(BeTrue())
		Expect(m.Steps).To(BeZero())
	})

	It("should halt when an operand address is outside memory", func() {
		m := New(imageOf(word.W64, 99, 0, 0), 0)
		m.Step()
		Expect(m.Halted).To(BeTrue())
		Expect(m.Memory).To(Equal([]int64{99, 0, 0}))
	})

	It("should wrap at the cell width", func() {
		// mem[4] = -128 - 1 wraps to 127, which is positive.
		m := New(imageOf(word.W8, 3, 4, -1, 1, -128), 0)
		m.Step()
		Expect(m.Memory[4]).To(Equal(int64(127)))
		Expect(m.PC).To(Equal(int64(3)))
	})

	It("should ignore Step after halting", func() {
		m := New(subtractThenHalt(), 0)
		Expect(m.Run(0)).To(Succeed())
		before := append([]int64(nil), m.Memory...)
		m.Step()
		Expect(m.Memory).To(Equal(before))
		Expect(m.Steps).To(Equal(int64(2)))
	})

	It("should report an exhausted step budget", func() {
		// mem[3] - mem[3] = 0 branches back to 0 forever.
		m := New(imageOf(word.W64, 3, 3, 0, 0), 0)
		err := m.Run(10)
		Expect(err).To(MatchError(ErrStepBudget))
		Expect(m.Steps).To(Equal(int64(10)))
		Expect(m.Halted).To(BeFalse())
	})

	It("should stop when the context is cancelled", func() {
		m := New(imageOf(word.W64, 3, 3, 0, 0), 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(m.RunContext(ctx, 0)).To(MatchError(context.Canceled))
	})

	Context("with a tracer", func() {
		var (
			mockCtrl *gomock.Controller
			tracer   *MockTracer
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			tracer = NewMockTracer(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should see every step in order and the halt once", func() {
			m := New(subtractThenHalt(), 0)
			m.Tracer = tracer

			gomock.InOrder(
				tracer.EXPECT().OnStep(m, Step{PC: 0, A: 6, B: 7, C: 3, Result: 7}),
				tracer.EXPECT().OnStep(m, Step{PC: 3, A: 8, B: 8, C: -1, Result: 0, Jumped: true}),
				tracer.EXPECT().OnHalt(m).Times(1),
			)

			Expect(m.Run(0)).To(Succeed())
		})
	})

	It("should count hits with Counter", func() {
		m := New(subtractThenHalt(), 0)
		c := NewCounter()
		m.Tracer = c
		Expect(m.Run(0)).To(Succeed())
		Expect(c.Hits).To(Equal(map[int64]int64{0: 1, 3: 1}))
		Expect(c.Halted).To(BeTrue())
	})
})

var _ = Describe("Snapshot", func() {
	It("should restore the exact machine state", func() {
		m := New(imageOf(word.W16, 3, 4, -1, 1, -32768), 32)
		m.Step()

		data, err := m.Snapshot()
		Expect(err).NotTo(HaveOccurred())

		back, err := Restore(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(back.Width).To(Equal(word.W16))
		Expect(back.Memory).To(Equal(m.Memory))
		Expect(back.PC).To(Equal(m.PC))
		Expect(back.Steps).To(Equal(m.Steps))
		Expect(back.Halted).To(Equal(m.Halted))
	})

	It("should reject garbage", func() {
		_, err := Restore([]byte("not a zip"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Report", func() {
	It("should print the state line and the temp fields", func() {
		img := subtractThenHalt()
		img.TempStart = 6
		m := New(img, 0)
		Expect(m.Run(0)).To(Succeed())

		var buf bytes.Buffer
		m.WriteState(&buf, img)
		Expect(buf.String()).To(Equal("pc=-1 steps=2 halted=true\n$t@6=5\n$e@7=7\n$r@8=0\n"))
	})

	It("should list changed and initialised cells only", func() {
		img := subtractThenHalt()
		img.Lines[7] = 3
		m := New(img, 32)
		Expect(m.Run(0)).To(Succeed())

		var buf bytes.Buffer
		m.WriteMemoryTable(&buf, img, map[int64]int64{0: 1, 3: 1})
		out := buf.String()
		Expect(out).To(ContainSubstring("Memory"))
		Expect(out).To(ContainSubstring("HITS"))
		Expect(out).To(MatchRegexp(`\|\s+7 \|\s+7 \|\s+12 \|`))
		Expect(out).NotTo(ContainSubstring("| 31 |"))
	})
})
