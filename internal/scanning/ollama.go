package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Scanner interface using a self-hosted Ollama
// instance. Invoice scanning needs a vision model (llava, qwen2-vl);
// free-text extraction works with any chat model. Voice notes are not
// supported on this backend.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Scanner instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			// Local vision models can be slow
			Timeout: 120 * time.Second,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanInvoice analyzes an invoice image or PDF and extracts line items
func (o *Ollama) ScanInvoice(document []byte, contentType string) (*Extraction, error) {
	pngData, err := prepareDocument(document, contentType)
	if err != nil {
		return nil, err
	}

	text, err := o.chat([]ollamaMessage{
		{
			Role:    "system",
			Content: "You are an expert at reading supplier invoices. Read all text in the image carefully and respond only with valid JSON.",
		},
		{
			Role:    "user",
			Content: invoiceScanPrompt,
			Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
		},
	})
	if err != nil {
		return nil, err
	}

	extraction, err := parseExtractionJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing invoice data: %w", err)
	}
	return extraction, nil
}

// ExtractText detects line items mentioned in free text
func (o *Ollama) ExtractText(texto string, inventario []ContextProduct, proveedores []string) (*Extraction, error) {
	text, err := o.chat([]ollamaMessage{
		{
			Role:    "system",
			Content: "You are an inventory assistant. Respond only with valid JSON.",
		},
		{
			Role:    "user",
			Content: buildTextPrompt(texto, inventario, proveedores),
		},
	})
	if err != nil {
		return nil, err
	}

	extraction, err := parseExtractionJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing extraction data: %w", err)
	}
	if extraction.TextoCompleto == "" {
		extraction.TextoCompleto = texto
	}
	return extraction, nil
}

// TranscribeAudio is not supported by Ollama vision models
func (o *Ollama) TranscribeAudio(audio []byte, contentType string) (string, error) {
	return "", fmt.Errorf("audio transcription is not supported by the ollama backend")
}

// chat runs one request against Ollama's chat API and returns the reply text
func (o *Ollama) chat(messages []ollamaMessage) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	jsonData, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Stream:   false,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
