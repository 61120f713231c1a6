package inventory

import "strings"

// ResolveSupplier finds the supplier a piece of free text (invoice OCR,
// voice transcript, typed note) refers to. Resolution is a deterministic
// single-pass scan, first match in list order wins:
//
//  1. case-insensitive substring match on each supplier's canonical name,
//     or an exact CUIT occurrence in the raw text
//  2. fallback: the supplier's alias keyword list
//
// Returns nil when nothing matches; tax computation then falls back to
// DefaultTaxRate.
func ResolveSupplier(texto string, proveedores []Supplier) *Supplier {
	textoLower := strings.ToLower(texto)

	for i := range proveedores {
		p := &proveedores[i]
		if p.Nombre != "" && strings.Contains(textoLower, strings.ToLower(p.Nombre)) {
			return p
		}
		if p.CUIT != "" && strings.Contains(texto, p.CUIT) {
			return p
		}
	}

	for i := range proveedores {
		p := &proveedores[i]
		for _, alias := range p.Alias {
			if alias == "" {
				continue
			}
			if strings.Contains(textoLower, strings.ToLower(alias)) {
				return p
			}
		}
	}

	return nil
}

// SupplierByName matches a detected supplier name (as reported by the
// extraction backend) against the known list, case-insensitively. Falls
// back to ResolveSupplier over the name so aliases still apply.
func SupplierByName(nombre string, proveedores []Supplier) *Supplier {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil
	}
	for i := range proveedores {
		if strings.EqualFold(proveedores[i].Nombre, nombre) {
			return &proveedores[i]
		}
	}
	return ResolveSupplier(nombre, proveedores)
}
