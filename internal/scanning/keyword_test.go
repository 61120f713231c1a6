package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Keyword", func() {
	var (
		scanner    *Keyword
		inventario []ContextProduct
	)

	BeforeEach(func() {
		scanner = NewKeyword(nil)
		inventario = []ContextProduct{
			{ID: 2, Nombre: "Coca-Cola 2L", Stock: 24, PrecioBase: 450},
		}
	})

	Describe("ExtractText", func() {
		It("should detect a known product with its quantity", func() {
			extraction, err := scanner.ExtractText("llegaron 5 cocas", inventario, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos).To(HaveLen(1))

			p := extraction.Productos[0]
			Expect(p.Nombre).To(Equal("Coca-Cola 2L"))
			Expect(p.Cantidad).To(Equal(5))
			Expect(p.Accion).To(Equal("entrada"))
			Expect(p.Confianza).To(Equal(85.0))
		})

		It("should match the product against the inventory", func() {
			extraction, err := scanner.ExtractText("llegaron 5 cocas", inventario, nil)
			Expect(err).NotTo(HaveOccurred())

			p := extraction.Productos[0]
			Expect(p.ProductoID).To(Equal(int64(2)))
			Expect(p.EsNuevo).To(BeFalse())
		})

		It("should flag unknown products as new", func() {
			extraction, err := scanner.ExtractText("llegaron 3 panes", nil, nil)
			Expect(err).NotTo(HaveOccurred())

			p := extraction.Productos[0]
			Expect(p.Nombre).To(Equal("Pan Lactal"))
			Expect(p.EsNuevo).To(BeTrue())
			Expect(p.ProductoID).To(BeZero())
		})

		It("should recognize exits", func() {
			extraction, err := scanner.ExtractText("se vendieron 4 cocas", inventario, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos[0].Accion).To(Equal("salida"))
		})

		It("should default the quantity to one", func() {
			extraction, err := scanner.ExtractText("llegó agua", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos[0].Cantidad).To(Equal(1))
		})

		It("should process each line separately", func() {
			extraction, err := scanner.ExtractText("llegaron 5 cocas\nvendimos 2 leches", inventario, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos).To(HaveLen(2))
			Expect(extraction.Productos[0].Accion).To(Equal("entrada"))
			Expect(extraction.Productos[1].Accion).To(Equal("salida"))
		})

		It("should return no products for unrelated text", func() {
			extraction, err := scanner.ExtractText("hola, ¿cómo estás?", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos).To(BeEmpty())
		})

		It("should fill in the table price", func() {
			extraction, err := scanner.ExtractText("llegaron 5 cocas", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(extraction.Productos[0].PrecioSinImpuestos).NotTo(BeNil())
			Expect(*extraction.Productos[0].PrecioSinImpuestos).To(Equal(450.0))
		})

		It("should resolve the same text identically on every run", func() {
			first, err := scanner.ExtractText("2 aguas y 3 cocas", inventario, nil)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 20; i++ {
				again, err := scanner.ExtractText("2 aguas y 3 cocas", inventario, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Productos).To(Equal(first.Productos))
			}
		})
	})

	It("should refuse invoice scanning", func() {
		_, err := scanner.ScanInvoice([]byte("img"), "image/png")
		Expect(err).To(HaveOccurred())
	})

	It("should refuse audio transcription", func() {
		_, err := scanner.TranscribeAudio([]byte("audio"), "audio/ogg")
		Expect(err).To(HaveOccurred())
	})
})
