package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// receiptSchema constrains the extraction call to structured JSON output
var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type:        genai.TypeArray,
			Description: "List of items purchased.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"description": {Type: genai.TypeString, Description: "Name of the item, should be unique."},
					"price":       {Type: genai.TypeNumber, Description: "Price of the single item."},
				},
				Required: []string{"description", "price"},
			},
		},
		"subtotal": {Type: genai.TypeNumber, Description: "The subtotal before tax and tip."},
		"tax":      {Type: genai.TypeNumber, Description: "The total tax amount."},
		"tip":      {Type: genai.TypeNumber, Description: "The total tip amount, calculated if not explicit."},
		"total":    {Type: genai.TypeNumber, Description: "The final total amount."},
	},
	Required: []string{"items", "subtotal", "tax", "tip", "total"},
}

// assignmentsSchema constrains the interpretation call
var assignmentsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"assignments": {
			Type:        genai.TypeArray,
			Description: "The updated list of item assignments.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"item": {Type: genai.TypeString, Description: "The description of the receipt item."},
					"people": {
						Type:        genai.TypeArray,
						Description: "An array of names assigned to this item.",
						Items:       &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{"item", "people"},
			},
		},
	},
	Required: []string{"assignments"},
}

// Gemini implements the Oracle interface using Google Gemini
type Gemini struct {
	client         *genai.Client
	extractModel   *genai.GenerativeModel
	interpretModel *genai.GenerativeModel
}

// NewGemini creates a new Gemini Oracle instance
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

	extractModel := client.GenerativeModel(modelName)
	extractModel.ResponseMIMEType = "application/json"
	extractModel.ResponseSchema = receiptSchema

	interpretModel := client.GenerativeModel(modelName)
	interpretModel.ResponseMIMEType = "application/json"
	interpretModel.ResponseSchema = assignmentsSchema

	return &Gemini{
		client:         client,
		extractModel:   extractModel,
		interpretModel: interpretModel,
	}, nil
}

// ExtractReceipt analyzes a receipt and extracts line items and totals
func (g *Gemini) ExtractReceipt(imageData []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not
	// the full MIME type. After prepareImageData, everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(extractPrompt),
	}

	resp, err := g.extractModel.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	data, err := parseReceiptJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	return data, nil
}

// InterpretCommand applies a free-text instruction to the current
// assignments and returns a full replacement covering every item
func (g *Gemini) InterpretCommand(items []ReceiptItem, current Assignments, command string) (Assignments, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := g.interpretModel.GenerateContent(ctx, genai.Text(interpretPrompt(items, current, command)))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	assignments, err := parseAssignmentsJSON(text, items)
	if err != nil {
		return nil, fmt.Errorf("parsing assignments: %w", err)
	}

	return assignments, nil
}

// responseText concatenates the text parts of a Gemini response
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
