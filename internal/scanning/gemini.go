package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// ScanInvoice analyzes an invoice image or PDF and extracts line items
func (g *Gemini) ScanInvoice(document []byte, contentType string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Everything is normalized to PNG before it reaches the model
	pngData, err := prepareDocument(document, contentType)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx,
		genai.ImageData("png", pngData),
		genai.Text(invoiceScanPrompt),
	)
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
func (g *Gemini) ExtractText(texto string, inventario []ContextProduct, proveedores []string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := g.generate(ctx, genai.Text(buildTextPrompt(texto, inventario, proveedores)))
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

// TranscribeAudio transcribes a voice note
func (g *Gemini) TranscribeAudio(audio []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	text, err := g.generate(ctx,
		genai.Blob{MIMEType: mimeType, Data: audio},
		genai.Text(transcriptionPrompt),
	)
	if err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(text)
	transcript = strings.TrimPrefix(transcript, "```")
	transcript = strings.TrimSuffix(transcript, "```")
	return strings.TrimSpace(transcript), nil
}

// generate runs one prompt against the model and collects the text response
func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
