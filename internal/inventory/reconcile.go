package inventory

import (
	"fmt"
	"time"

	"github.com/nportas/stockai/internal/scanning"
)

// DefaultStockMinimo is the minimum-quantity threshold assigned to items
// created from detected products
const DefaultStockMinimo = 5

// ReconcileResult reports what one reconciliation run did. The counters are
// transient: only the updated stock list persists.
type ReconcileResult struct {
	Actualizados int // existing items whose stock changed
	Nuevos       int // items created
	Errores      int // line items that could not be applied
}

// Reconcile applies a list of detected products to the stock snapshot, in
// input order. Detected products flagged as new (or without a matching id)
// become new items; matched ids get their stock adjusted by the entrance/
// exit delta, clamped at zero. A line referencing an unknown id, with an
// unknown accion, or with a negative quantity, is counted as an error and
// the rest of the batch continues. The snapshot is mutated in memory and returned together with
// the counters; the caller decides whether to persist it.
func Reconcile(stock []Item, detectados []scanning.DetectedProduct, proveedores []Supplier, now time.Time) ([]Item, ReconcileResult) {
	var result ReconcileResult

	// New items default to the first known supplier
	defaultProveedorID := int64(1)
	if len(proveedores) > 0 {
		defaultProveedorID = proveedores[0].ID
	}

	for _, det := range detectados {
		accion := det.Accion
		if accion == "" {
			accion = "entrada"
		}
		if accion != "entrada" && accion != "salida" {
			result.Errores++
			continue
		}

		// A negative quantity could drive stock below zero through the
		// entrada branch, so it never reaches either one
		if det.Cantidad < 0 {
			result.Errores++
			continue
		}

		if det.EsNuevo || det.ProductoID == 0 {
			stock = append(stock, newItem(stock, det, accion, defaultProveedorID, now))
			result.Nuevos++
			continue
		}

		idx := -1
		for i := range stock {
			if stock[i].ID == det.ProductoID {
				idx = i
				break
			}
		}
		if idx == -1 {
			result.Errores++
			continue
		}

		if accion == "entrada" {
			stock[idx].Stock += det.Cantidad
		} else {
			stock[idx].Stock -= det.Cantidad
			if stock[idx].Stock < 0 {
				// An exit larger than current stock clamps to zero
				stock[idx].Stock = 0
			}
		}
		stock[idx].UltimaActualizacion = now
		result.Actualizados++
	}

	return stock, result
}

// newItem builds the inventory entry for a product that has no match in the
// current stock
func newItem(stock []Item, det scanning.DetectedProduct, accion string, proveedorID int64, now time.Time) Item {
	id := nextID(stock)

	cantidad := 0
	if accion == "entrada" {
		cantidad = det.Cantidad
	}

	precioBase := 0.0
	if det.PrecioSinImpuestos != nil {
		precioBase = *det.PrecioSinImpuestos
	}

	return Item{
		ID:                  id,
		Nombre:              det.Nombre,
		Stock:               cantidad,
		StockMinimo:         DefaultStockMinimo,
		PrecioBase:          precioBase,
		Categoria:           "Nuevo",
		Codigo:              fmt.Sprintf("AUTO%03d", id),
		ProveedorID:         proveedorID,
		UltimaActualizacion: now,
	}
}

// nextID returns the next unused sequential id: one past the largest id in
// the snapshot, 1 when the snapshot is empty
func nextID(stock []Item) int64 {
	var max int64
	for i := range stock {
		if stock[i].ID > max {
			max = stock[i].ID
		}
	}
	return max + 1
}
