package inventory

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nportas/stockai/internal/scanning"
)

const (
	maxInvoiceSize = int64(50 << 20) // 50MB to handle high-resolution phone photos
	maxAudioSize   = int64(25 << 20) // 25MB covers several minutes of voice notes
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error envelope with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error":   message,
		"success": false,
	})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListStock returns the stock list with supplier names and
// tax-inclusive prices
func (s *Server) handleListStock(w http.ResponseWriter, r *http.Request) {
	stock, err := s.service.Stock()
	if err != nil {
		slog.Error("Error listing stock", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stock":   stock,
		"success": true,
	})
}

// handleCriticalStock returns the items at or below their minimum threshold
func (s *Server) handleCriticalStock(w http.ResponseWriter, r *http.Request) {
	critical, err := s.service.CriticalStock()
	if err != nil {
		slog.Error("Error listing critical stock", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stock":   critical,
		"success": true,
	})
}

// handleUpdateStock applies confirmed line items to the stock list
func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductosActualizados []scanning.DetectedProduct `json:"productos_actualizados"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductosActualizados == nil {
		jsonError(w, "productos_actualizados es requerido", http.StatusBadRequest)
		return
	}

	result, err := s.service.UpdateStock(req.ProductosActualizados)
	if err != nil {
		slog.Error("Error updating stock", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":                "Stock actualizado",
		"productos_actualizados": result.Actualizados,
		"productos_nuevos":       result.Nuevos,
		"productos_con_error":    result.Errores,
		"success":                true,
	})
}

// handleListSuppliers returns the supplier list
func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	proveedores, err := s.service.Suppliers()
	if err != nil {
		slog.Error("Error listing suppliers", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if proveedores == nil {
		proveedores = []Supplier{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"proveedores": proveedores,
		"success":     true,
	})
}

// readUpload parses the multipart form and reads the uploaded file. The
// body is capped at maxSize so an oversized upload aborts mid-read instead
// of being buffered whole.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (string, []byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		// The limit error may surface wrapped by the multipart reader
		if strings.Contains(err.Error(), "request body too large") {
			return "", nil, "", errors.New("el archivo es demasiado grande")
		}
		return "", nil, "", errors.New("error al procesar el formulario")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, "", errors.New("no se recibió ningún archivo")
	}
	defer f.Close()

	if header.Size > maxSize {
		return "", nil, "", errors.New("el archivo es demasiado grande")
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, "", errors.New("error al leer el archivo")
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	return header.Filename, data, contentType, nil
}

// detectContentType falls back to the file extension when the upload
// carries no usable Content-Type header
func detectContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// handleUploadInvoice handles invoice photo and PDF upload
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, err := readUpload(w, r, maxInvoiceSize)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := s.service.ProcessInvoice(filename, data, contentType)
	if err != nil {
		slog.Error("Error processing invoice", "filename", filename, "error", err)
		jsonError(w, "No se pudo procesar la factura", http.StatusBadGateway)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, invoiceResponse(outcome))
}

// handleProcessText extracts line items from a typed note
func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texto string `json:"texto"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Texto) == "" {
		jsonError(w, "El texto no puede estar vacío", http.StatusBadRequest)
		return
	}

	outcome, err := s.service.ProcessText(req.Texto)
	if err != nil {
		slog.Error("Error processing text", "error", err)
		jsonError(w, "No se pudo procesar el texto", http.StatusBadGateway)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, invoiceResponse(outcome))
}

// handleUploadAudio handles voice note upload
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, err := readUpload(w, r, maxAudioSize)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !strings.HasPrefix(contentType, "audio/") && contentType != "video/webm" {
		jsonError(w, "El archivo debe ser de audio", http.StatusBadRequest)
		return
	}

	outcome, err := s.service.ProcessAudio(filename, data, contentType)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			jsonError(w, "No se detectó voz en el audio", http.StatusBadRequest)
			return
		}
		slog.Error("Error processing audio", "filename", filename, "error", err)
		jsonError(w, "No se pudo procesar el audio", http.StatusBadGateway)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, invoiceResponse(outcome))
}

// invoiceResponse builds the success envelope for extraction endpoints.
// Productos is always an array so clients never see null.
func invoiceResponse(outcome *ScanOutcome) map[string]any {
	productos := outcome.Productos
	if productos == nil {
		productos = []scanning.DetectedProduct{}
	}

	body := map[string]any{
		"productos": productos,
		"success":   true,
	}
	if outcome.Proveedor != nil {
		body["proveedor"] = outcome.Proveedor
	}
	if outcome.Resumen != nil {
		body["resumen"] = outcome.Resumen
	}
	if outcome.TextoCompleto != "" {
		body["texto_completo"] = outcome.TextoCompleto
	}
	if outcome.TextoTranscrito != "" {
		body["texto_transcrito"] = outcome.TextoTranscrito
	}
	if outcome.DocumentoID != "" {
		body["documento_id"] = outcome.DocumentoID
	}
	return body
}

// handleListDocuments returns the stored document records
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListDocuments()
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if docs == nil {
		docs = []*Document{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documentos": docs,
		"success":    true,
	})
}

// handleGetDocumentFile returns the stored file for a document
func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetDocumentFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteDocument deletes a document and its file
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteDocument(id); err != nil {
		corsError(w, "Error deleting document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
