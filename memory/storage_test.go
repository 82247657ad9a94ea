package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gxfifo/memory"
)

var _ = Describe("Storage", func() {
	var storage *memory.Storage

	BeforeEach(func() {
		storage = memory.NewStorage(3 * 4096)
	})

	It("should return written command bytes at any offset", func() {
		Expect(storage.Write(0x20, []byte{0x61, 0x20, 0x00, 0x0A, 0xBC})).
			To(Succeed())

		Expect(storage.Resolve(0x20, 2)).To(Equal([]byte{0x61, 0x20}))
		Expect(storage.Resolve(0x22, 3)).To(Equal([]byte{0x00, 0x0A, 0xBC}))
	})

	It("should keep a display list that straddles two pages intact", func() {
		list := []byte{1, 2, 3, 4, 5, 6}
		Expect(storage.Write(4093, list)).To(Succeed())

		Expect(storage.Resolve(4093, 6)).To(Equal(list))
	})

	It("should read zeros from memory never written", func() {
		Expect(storage.Resolve(8000, 3)).To(Equal([]byte{0, 0, 0}))
	})

	It("should hand out copies", func() {
		Expect(storage.Write(0, []byte{7})).To(Succeed())

		data, err := storage.Resolve(0, 1)
		Expect(err).NotTo(HaveOccurred())
		data[0] = 8

		Expect(storage.Resolve(0, 1)).To(Equal([]byte{7}))
	})

	It("should fold cached and uncached mirrors", func() {
		Expect(storage.Write(0x80000010, []byte{9})).To(Succeed())

		Expect(storage.Read(0xC0000010, 1)).To(Equal([]byte{9}))
		Expect(storage.Read(0x00000010, 1)).To(Equal([]byte{9}))
	})

	It("should honour a custom address mask", func() {
		storage.WithAddressMask(0xFFF)
		Expect(storage.Write(0x1010, []byte{5})).To(Succeed())

		Expect(storage.Read(0x10, 1)).To(Equal([]byte{5}))
	})

	It("should reject accesses past the capacity", func() {
		Expect(storage.Write(3*4096-1, []byte{1, 2})).
			To(MatchError(memory.ErrOutOfRange))

		_, err := storage.Resolve(3*4096+1, 1)
		Expect(err).To(MatchError(memory.ErrOutOfRange))
	})
})
