package scanning

// DetectedProduct is one candidate line item produced by an extraction call.
// JSON field names follow the wire vocabulary consumed by the store frontend.
type DetectedProduct struct {
	Nombre             string   `json:"nombre"`
	Cantidad           int      `json:"cantidad"`
	Accion             string   `json:"accion"` // "entrada" or "salida"
	PrecioSinImpuestos *float64 `json:"precio_sin_impuestos,omitempty"`
	PrecioConImpuestos *float64 `json:"precio_con_impuestos,omitempty"`
	EsBonificacion     bool     `json:"es_bonificacion,omitempty"`
	EsNuevo            bool     `json:"es_nuevo,omitempty"`
	ProductoID         int64    `json:"producto_id,omitempty"`
	Confianza          float64  `json:"confianza"` // 0-100, advisory only
}

// Extraction is the result of one extraction call: the detected line items,
// an optional supplier name mentioned in the source, and the raw text the
// model worked from (full OCR text for invoices, the input text otherwise).
type Extraction struct {
	Productos          []DetectedProduct `json:"productos"`
	ProveedorDetectado string            `json:"proveedor_detectado,omitempty"`
	TextoCompleto      string            `json:"texto_completo,omitempty"`
}

// ContextProduct is a compact view of an inventory item passed to the model
// so it can match detected products against existing stock by id.
type ContextProduct struct {
	ID         int64
	Nombre     string
	Stock      int
	PrecioBase float64
}

// Scanner defines the interface for invoice/text/voice extraction backends
type Scanner interface {
	// ScanInvoice analyzes an invoice image/PDF and extracts line items
	ScanInvoice(document []byte, contentType string) (*Extraction, error)

	// ExtractText detects line items in free text, matching against the
	// current inventory and the known supplier names
	ExtractText(texto string, inventario []ContextProduct, proveedores []string) (*Extraction, error)

	// TranscribeAudio transcribes a voice note and returns the spoken text
	TranscribeAudio(audio []byte, contentType string) (string, error)

	// Close closes the scanner and releases resources
	Close() error
}
