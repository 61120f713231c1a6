package inventory

import "time"

// Item is one product in the stock list. JSON field names match the records
// the store frontend and the seed files use.
type Item struct {
	ID                  int64     `json:"id"`
	Nombre              string    `json:"nombre"`
	Stock               int       `json:"stock"`
	StockMinimo         int       `json:"stock_minimo"`
	PrecioBase          float64   `json:"precio_base"` // unit price before tax
	Categoria           string    `json:"categoria"`
	Codigo              string    `json:"codigo"`
	ProveedorID         int64     `json:"proveedor_id"`
	UltimaActualizacion time.Time `json:"ultima_actualizacion"`
}

// Supplier is a distributor the store buys from. Impuesto is the flat
// surcharge rate (percent) applied to all of that supplier's goods. Alias
// holds the free-text keywords used to recognize the supplier in invoices
// and voice notes ("h&h", "femsa", ...), editable through the seed file.
type Supplier struct {
	ID        int64    `json:"id"`
	Nombre    string   `json:"nombre"`
	Impuesto  float64  `json:"impuesto"`
	Telefono  string   `json:"telefono,omitempty"`
	CUIT      string   `json:"cuit,omitempty"`
	Email     string   `json:"email,omitempty"`
	Direccion string   `json:"direccion,omitempty"`
	Alias     []string `json:"alias,omitempty"`
}

// InvoiceSummary is the derived money summary of one processed invoice.
// Never persisted on its own.
type InvoiceSummary struct {
	Subtotal  float64 `json:"subtotal"`
	Impuestos float64 `json:"impuestos"`
	Total     float64 `json:"total"`
}

// StockEntry is an Item joined with its supplier for API responses
type StockEntry struct {
	Item
	PrecioConImpuestos float64 `json:"precio_con_impuestos"`
	ProveedorNombre    string  `json:"proveedor_nombre"`
}

// Document is the metadata record for an uploaded file (invoice photo/PDF
// or voice note). The bytes themselves live in Storage.
type Document struct {
	ID          string    `json:"id"`
	Tipo        string    `json:"tipo"` // "factura" or "audio"
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
