package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nportas/stockai/internal/scanning"
)

// ErrNoSpeech is returned when a voice note transcribes to nothing usable
var ErrNoSpeech = errors.New("no speech detected in audio")

// IDGenerator generates unique ids for stored documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ScanOutcome is the result of processing one invoice, text note or voice
// note: the priced line items, the resolved supplier, and the invoice
// summary when at least one line carried a price. Nothing in it mutates
// stock; that happens in a separate UpdateStock call.
type ScanOutcome struct {
	Productos       []scanning.DetectedProduct `json:"productos"`
	Proveedor       *Supplier                  `json:"proveedor,omitempty"`
	Resumen         *InvoiceSummary            `json:"resumen,omitempty"`
	TextoCompleto   string                     `json:"texto_completo,omitempty"`
	TextoTranscrito string                     `json:"texto_transcrito,omitempty"`
	DocumentoID     string                     `json:"documento_id,omitempty"`
}

// Service ties the extraction backend, the reconciliation engine and the
// persisted collections together
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with the default id generator and clock
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameSpecials = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces   = regexp.MustCompile(`\s+`)
)

// cleanupFile removes a stored file after a failed pipeline step. The
// original error is what the caller reports; a failed cleanup only gets
// logged.
func (s *Service) cleanupFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// sanitizeFilename cleans up phone-generated filenames before they hit disk
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameSpecials.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "documento"
	}
	return base + ext
}

// ProcessInvoice stores an uploaded invoice (image or PDF), extracts its
// line items, resolves the supplier, and computes tax-inclusive prices and
// the invoice summary. Stock is not touched.
func (s *Service) ProcessInvoice(filename string, data []byte, contentType string) (*ScanOutcome, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	extraction, err := s.scanner.ScanInvoice(data, contentType)
	if err != nil {
		slog.Error("Failed to scan invoice",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.cleanupFile(savedPath)
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}

	doc := &Document{
		ID:          id,
		Tipo:        "factura",
		Filename:    savedPath,
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   now,
	}
	if err := s.db.SaveDocument(doc); err != nil {
		s.cleanupFile(savedPath)
		return nil, fmt.Errorf("saving document record: %w", err)
	}

	outcome, err := s.buildOutcome(extraction, extraction.TextoCompleto)
	if err != nil {
		return nil, err
	}
	outcome.DocumentoID = id
	return outcome, nil
}

// ProcessText extracts line items from a typed note, matching them against
// the current inventory
func (s *Service) ProcessText(texto string) (*ScanOutcome, error) {
	extraction, err := s.extractFromText(texto)
	if err != nil {
		return nil, err
	}
	return s.buildOutcome(extraction, texto)
}

// ProcessAudio stores a voice note, transcribes it, and extracts line items
// from the transcript
func (s *Service) ProcessAudio(filename string, data []byte, contentType string) (*ScanOutcome, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	transcript, err := s.scanner.TranscribeAudio(data, contentType)
	if err != nil {
		slog.Error("Failed to transcribe audio",
			"filename", filename,
			"content_type", contentType,
			"error", err,
		)
		s.cleanupFile(savedPath)
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}

	transcript = strings.TrimSpace(transcript)
	if len(transcript) < 5 {
		s.cleanupFile(savedPath)
		return nil, ErrNoSpeech
	}

	extraction, err := s.extractFromText(transcript)
	if err != nil {
		s.cleanupFile(savedPath)
		return nil, err
	}

	doc := &Document{
		ID:          id,
		Tipo:        "audio",
		Filename:    savedPath,
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   now,
	}
	if err := s.db.SaveDocument(doc); err != nil {
		s.cleanupFile(savedPath)
		return nil, fmt.Errorf("saving document record: %w", err)
	}

	outcome, err := s.buildOutcome(extraction, transcript)
	if err != nil {
		return nil, err
	}
	outcome.TextoTranscrito = transcript
	outcome.DocumentoID = id
	return outcome, nil
}

// extractFromText runs the extraction backend over free text with the
// current inventory and supplier names as matching context
func (s *Service) extractFromText(texto string) (*scanning.Extraction, error) {
	items, err := s.db.ListStock()
	if err != nil {
		return nil, fmt.Errorf("loading stock: %w", err)
	}
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return nil, fmt.Errorf("loading suppliers: %w", err)
	}

	contexto := make([]scanning.ContextProduct, 0, len(items))
	for _, item := range items {
		contexto = append(contexto, scanning.ContextProduct{
			ID:         item.ID,
			Nombre:     item.Nombre,
			Stock:      item.Stock,
			PrecioBase: item.PrecioBase,
		})
	}
	nombres := make([]string, 0, len(proveedores))
	for _, p := range proveedores {
		nombres = append(nombres, p.Nombre)
	}

	extraction, err := s.scanner.ExtractText(texto, contexto, nombres)
	if err != nil {
		return nil, fmt.Errorf("extracting from text: %w", err)
	}
	return extraction, nil
}

// buildOutcome resolves the supplier for an extraction, prices the line
// items with the supplier's rate and computes the invoice summary
func (s *Service) buildOutcome(extraction *scanning.Extraction, texto string) (*ScanOutcome, error) {
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return nil, fmt.Errorf("loading suppliers: %w", err)
	}

	proveedor := SupplierByName(extraction.ProveedorDetectado, proveedores)
	if proveedor == nil {
		proveedor = ResolveSupplier(texto, proveedores)
	}

	rate := TaxRateFor(proveedor)
	productos := PriceProducts(extraction.Productos, rate)

	return &ScanOutcome{
		Productos:     productos,
		Proveedor:     proveedor,
		Resumen:       Summarize(productos, rate),
		TextoCompleto: texto,
	}, nil
}

// UpdateStock applies detected products to the persisted stock list: the
// snapshot is read in full, reconciled in memory and written back in one
// shot. Per-item failures are counted, never fatal.
func (s *Service) UpdateStock(detectados []scanning.DetectedProduct) (ReconcileResult, error) {
	stock, err := s.db.ListStock()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("loading stock: %w", err)
	}
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("loading suppliers: %w", err)
	}

	stock, result := Reconcile(stock, detectados, proveedores, s.timeSource.Now())

	if err := s.db.ReplaceStock(stock); err != nil {
		return ReconcileResult{}, fmt.Errorf("saving stock: %w", err)
	}

	slog.Info("Stock reconciled",
		"recibidos", len(detectados),
		"actualizados", result.Actualizados,
		"nuevos", result.Nuevos,
		"errores", result.Errores,
	)
	return result, nil
}

// Stock returns the stock list joined with supplier names and
// tax-inclusive prices
func (s *Service) Stock() ([]StockEntry, error) {
	items, err := s.db.ListStock()
	if err != nil {
		return nil, fmt.Errorf("loading stock: %w", err)
	}
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return nil, fmt.Errorf("loading suppliers: %w", err)
	}

	byID := make(map[int64]*Supplier, len(proveedores))
	for i := range proveedores {
		byID[proveedores[i].ID] = &proveedores[i]
	}

	entries := make([]StockEntry, 0, len(items))
	for _, item := range items {
		entry := StockEntry{
			Item:            item,
			ProveedorNombre: "Desconocido",
		}
		rate := DefaultTaxRate
		if p, ok := byID[item.ProveedorID]; ok {
			entry.ProveedorNombre = p.Nombre
			rate = TaxRateFor(p)
		}
		entry.PrecioConImpuestos = GrossPrice(item.PrecioBase, rate)
		entries = append(entries, entry)
	}
	return entries, nil
}

// CriticalStock returns the items at or below their minimum threshold
func (s *Service) CriticalStock() ([]StockEntry, error) {
	entries, err := s.Stock()
	if err != nil {
		return nil, err
	}
	critical := make([]StockEntry, 0)
	for _, entry := range entries {
		if entry.Stock <= entry.StockMinimo {
			critical = append(critical, entry)
		}
	}
	return critical, nil
}

// Suppliers returns the supplier list
func (s *Service) Suppliers() ([]Supplier, error) {
	proveedores, err := s.db.ListSuppliers()
	if err != nil {
		return nil, fmt.Errorf("loading suppliers: %w", err)
	}
	return proveedores, nil
}

// ListDocuments returns the stored document records
func (s *Service) ListDocuments() ([]*Document, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// GetDocumentFile retrieves the bytes and content type of a stored document
func (s *Service) GetDocumentFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}
	data, err := s.storage.Get(doc.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting document file: %w", err)
	}
	return data, doc.ContentType, nil
}

// DeleteDocument removes a stored document and its file
func (s *Service) DeleteDocument(id string) error {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return fmt.Errorf("getting document for deletion: %w", err)
	}
	if err := s.storage.Delete(doc.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", doc.Filename, "error", err)
	}
	if err := s.db.DeleteDocument(id); err != nil {
		return fmt.Errorf("deleting document record: %w", err)
	}
	return nil
}
