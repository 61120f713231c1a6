package scanning

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// KeywordProduct maps a trigger keyword to a canonical product
type KeywordProduct struct {
	Nombre string
	Precio float64
}

// DefaultKeywords covers the products the store moves most; used when no
// custom table is configured.
var DefaultKeywords = map[string]KeywordProduct{
	"coca":   {Nombre: "Coca-Cola 2L", Precio: 450},
	"pan":    {Nombre: "Pan Lactal", Precio: 280},
	"leche":  {Nombre: "Leche Entera 1L", Precio: 320},
	"agua":   {Nombre: "Agua Mineral 500ml", Precio: 120},
	"yogur":  {Nombre: "Yogur Ser", Precio: 150},
	"fideos": {Nombre: "Fideos Matarazzo", Precio: 200},
}

var exitWords = []string{"salida", "salieron", "salio", "salió", "vendimos", "vendieron", "se vendió", "se vendio"}

var firstNumber = regexp.MustCompile(`\d+`)

// Keyword implements the Scanner interface with a deterministic keyword
// table, no network and no model. It only handles free text; invoices and
// voice notes need a real backend.
type Keyword struct {
	table    map[string]KeywordProduct
	palabras []string // sorted, so matching is deterministic
}

// NewKeyword creates a keyword Scanner. A nil table uses DefaultKeywords.
func NewKeyword(table map[string]KeywordProduct) *Keyword {
	if table == nil {
		table = DefaultKeywords
	}
	palabras := make([]string, 0, len(table))
	for palabra := range table {
		palabras = append(palabras, palabra)
	}
	sort.Strings(palabras)
	return &Keyword{table: table, palabras: palabras}
}

// ScanInvoice is not supported: there is no OCR on this backend
func (k *Keyword) ScanInvoice(document []byte, contentType string) (*Extraction, error) {
	return nil, fmt.Errorf("invoice scanning is not supported by the keyword backend")
}

// ExtractText matches each line of the text against the keyword table.
// The first number on a matching line is taken as the quantity.
func (k *Keyword) ExtractText(texto string, inventario []ContextProduct, proveedores []string) (*Extraction, error) {
	extraction := &Extraction{
		Productos:     []DetectedProduct{},
		TextoCompleto: texto,
	}

	for _, linea := range strings.Split(texto, "\n") {
		lineaLower := strings.ToLower(linea)

		accion := "entrada"
		for _, w := range exitWords {
			if strings.Contains(lineaLower, w) {
				accion = "salida"
				break
			}
		}

		for _, palabra := range k.palabras {
			if !strings.Contains(lineaLower, palabra) {
				continue
			}
			producto := k.table[palabra]

			cantidad := 1
			if m := firstNumber.FindString(linea); m != "" {
				if n, err := strconv.Atoi(m); err == nil && n > 0 {
					cantidad = n
				}
			}

			precio := producto.Precio
			detected := DetectedProduct{
				Nombre:    producto.Nombre,
				Cantidad:  cantidad,
				Accion:    accion,
				Confianza: 85,
			}
			if precio > 0 {
				detected.PrecioSinImpuestos = &precio
			}

			// Match against inventory by name so existing items update
			// instead of duplicating
			detected.EsNuevo = true
			for _, item := range inventario {
				if strings.EqualFold(item.Nombre, producto.Nombre) {
					detected.ProductoID = item.ID
					detected.EsNuevo = false
					break
				}
			}

			extraction.Productos = append(extraction.Productos, detected)
			break
		}
	}

	// Supplier detection stays with the reconciliation engine; this
	// backend never claims one
	return extraction, nil
}

// TranscribeAudio is not supported by the keyword backend
func (k *Keyword) TranscribeAudio(audio []byte, contentType string) (string, error) {
	return "", fmt.Errorf("audio transcription is not supported by the keyword backend")
}

// Close is a no-op
func (k *Keyword) Close() error {
	return nil
}
