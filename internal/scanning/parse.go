package scanning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawExtraction mirrors the JSON the models return. Prices arrive in
// whatever shape the model felt like that day (number, "1.250,50",
// "$402.49"), so they are decoded loosely and normalized afterwards.
type rawExtraction struct {
	Productos          []rawProduct `json:"productos"`
	ProveedorDetectado string       `json:"proveedor_detectado"`
	TextoCompleto      string       `json:"texto_completo"`
}

type rawProduct struct {
	Nombre             string          `json:"nombre"`
	Cantidad           json.Number     `json:"cantidad"`
	Accion             string          `json:"accion"`
	PrecioSinImpuestos json.RawMessage `json:"precio_sin_impuestos"`
	Precio             json.RawMessage `json:"precio"` // legacy key some responses still use
	EsBonificacion     bool            `json:"es_bonificacion"`
	EsNuevo            bool            `json:"es_nuevo"`
	ProductoID         json.Number     `json:"producto_id"`
	Confianza          json.Number     `json:"confianza"`
}

// parseExtractionJSON parses the JSON response from a model
func parseExtractionJSON(text string) (*Extraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var raw rawExtraction
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	extraction := &Extraction{
		Productos:          make([]DetectedProduct, 0, len(raw.Productos)),
		ProveedorDetectado: strings.TrimSpace(raw.ProveedorDetectado),
		TextoCompleto:      raw.TextoCompleto,
	}
	if strings.EqualFold(extraction.ProveedorDetectado, "null") {
		extraction.ProveedorDetectado = ""
	}

	for _, rp := range raw.Productos {
		nombre := strings.TrimSpace(rp.Nombre)
		if nombre == "" {
			continue
		}

		cantidad := 1
		if n, err := rp.Cantidad.Int64(); err == nil && n > 0 {
			cantidad = int(n)
		}

		accion := strings.ToLower(strings.TrimSpace(rp.Accion))
		if accion == "" {
			accion = "entrada"
		}

		precio := normalizePrice(rp.PrecioSinImpuestos)
		if precio == nil {
			precio = normalizePrice(rp.Precio)
		}

		confianza, _ := rp.Confianza.Float64()
		if confianza < 0 {
			confianza = 0
		}
		if confianza > 100 {
			confianza = 100
		}

		var productoID int64
		if id, err := rp.ProductoID.Int64(); err == nil && id > 0 {
			productoID = id
		}

		extraction.Productos = append(extraction.Productos, DetectedProduct{
			Nombre:             nombre,
			Cantidad:           cantidad,
			Accion:             accion,
			PrecioSinImpuestos: precio,
			EsBonificacion:     rp.EsBonificacion,
			EsNuevo:            rp.EsNuevo,
			ProductoID:         productoID,
			Confianza:          confianza,
		})
	}

	return extraction, nil
}

// normalizePrice turns a loosely-typed price value into a float. Handles
// plain numbers plus the string formats seen on Argentine invoices:
// "$1,250.50", "1250,50" and "1.250,50". Returns nil when the value is
// absent or unparseable.
func normalizePrice(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num < 0 {
			return nil
		}
		return &num
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// The rightmost separator is the decimal point, the other one
		// groups thousands
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return nil
	}
	return &val
}
