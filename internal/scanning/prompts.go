package scanning

import (
	"fmt"
	"strings"
)

// invoiceScanPrompt is the shared prompt used by all LLM providers for
// reading supplier invoices (images and PDFs).
const invoiceScanPrompt = `You are analyzing a supplier invoice from a small retail store. Read ALL visible text and extract every product line, the supplier, and the invoice totals.

Product names must keep their FULL specification: brand, variant/flavor and size. Examples of correct names:
- "TWISTOS MINIT JAMON 95G" (not "TWISTOS MINIT JAMON")
- "COCA COLA 500ML" (not "COCA COLA")
- "SPRITE LIMA 2L" (not "SPRITE LIMA")

For each product line:
- cantidad: exact number of individual units (expand multipacks like X6, X12)
- precio_sin_impuestos: unit price BEFORE tax; if the line shows a total, divide by quantity
- es_bonificacion: true when the line is a free/bonus item (price 0)
- confianza: your confidence in the detection, 0 to 100

Also detect the supplier (business name printed on the invoice header) and the invoice summary when visible.

Return ONLY valid JSON in this exact format:
{
  "productos": [
    {"nombre": "BRAND PRODUCT SPEC", "cantidad": 1, "precio_sin_impuestos": 0.00, "es_bonificacion": false, "confianza": 95}
  ],
  "proveedor_detectado": "supplier name or null",
  "texto_completo": "all text visible on the document"
}

Important:
- Never omit size specifications (95G, 40G, 500ML, 2L)
- Every distinct specification is a distinct product
- Read every line that starts with a numeric product code
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// transcriptionPrompt asks the model for a verbatim transcript of a voice
// note, with store inventory vocabulary as context.
const transcriptionPrompt = `Transcribe this voice note verbatim. It was recorded by retail store staff and talks about merchandise movements: products, quantities, stock, deliveries ("llegaron", "entraron") and sales ("salieron", "vendimos"). Return ONLY the transcribed text, with no commentary and no markdown.`

// buildTextPrompt renders the free-text extraction prompt with the current
// inventory and the registered supplier names, so the model can match
// detected products against existing stock ids.
func buildTextPrompt(texto string, inventario []ContextProduct, proveedores []string) string {
	var inv strings.Builder
	if len(inventario) == 0 {
		inv.WriteString("(empty inventory)")
	}
	// Cap the inventory context so huge stock lists don't blow the prompt
	for i, p := range inventario {
		if i == 50 {
			break
		}
		fmt.Fprintf(&inv, "- ID:%d %s (stock: %d, precio: %.2f)\n", p.ID, p.Nombre, p.Stock, p.PrecioBase)
	}

	var provs strings.Builder
	if len(proveedores) == 0 {
		provs.WriteString("(none registered)")
	}
	for _, nombre := range proveedores {
		fmt.Fprintf(&provs, "- %s\n", nombre)
	}

	return fmt.Sprintf(`You are an inventory assistant for a small retail store. Analyze the text below and extract which products came in or went out, matching them against the existing inventory.

TEXT:
%s

CURRENT INVENTORY:
%s
REGISTERED SUPPLIERS:
%s
Rules:
- accion is "entrada" when products arrived and "salida" when they left/were sold
- If a detected product matches an inventory item EXACTLY (same brand, variant AND size), set producto_id to its ID and use the inventory name
- If it does not match exactly, set es_nuevo to true and leave producto_id out; when in doubt, treat it as new
- Only report products the text clearly mentions, never invent any
- If the text names one of the registered suppliers (or an obvious abbreviation of one), return it in proveedor_detectado

Return ONLY valid JSON in this exact format:
{
  "productos": [
    {"nombre": "PRODUCT NAME", "cantidad": 1, "accion": "entrada", "es_nuevo": false, "producto_id": 0, "precio_sin_impuestos": 0.00, "confianza": 90}
  ],
  "proveedor_detectado": "supplier name or null"
}

Do not include any text before or after the JSON. Do not use markdown code blocks.`, texto, inv.String(), provs.String())
}
