package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"trulyinvoice/internal/logger"
	"trulyinvoice/pkg/models"
)

// CompletionConfig tunes the language-model enrichment step.
type CompletionConfig struct {
	Model       string
	Temperature float32
	MaxRetries  int
}

// DefaultCompletionConfig uses a low temperature: extraction wants
// repeatable answers, not creative ones.
var DefaultCompletionConfig = CompletionConfig{
	Model:       openai.GPT4oMini,
	Temperature: 0.1,
	MaxRetries:  3,
}

// OpenAICompleter implements Completer with a ChatGPT completion that
// pulls GST fields out of raw OCR text.
type OpenAICompleter struct {
	client *openai.Client
	config CompletionConfig
	log    zerolog.Logger
}

// NewOpenAICompleter creates a completer from an API key.
func NewOpenAICompleter(apiKey string, config CompletionConfig) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, WrapExtractionError("NewOpenAICompleter", ErrInvalidConfiguration, "OpenAI API key is required")
	}
	if config.Model == "" {
		config = DefaultCompletionConfig
	}
	return &OpenAICompleter{
		client: openai.NewClient(apiKey),
		config: config,
		log:    logger.WithComponent("completion"),
	}, nil
}

// NewOpenAICompleterWithClient creates a completer with an explicit client
// (for testing).
func NewOpenAICompleterWithClient(client *openai.Client, config CompletionConfig) *OpenAICompleter {
	return &OpenAICompleter{client: client, config: config, log: logger.WithComponent("completion")}
}

const completionSystemPrompt = `You are an expert on Indian GST invoices. You extract structured fields from raw invoice text.
Respond with a single JSON object and nothing else. Use null for fields not present in the text.
Fields:
  gstin: the supplier's 15-character GSTIN
  place_of_supply: the Indian state name of the place of supply
  hsn_code: the HSN or SAC code of the main item
  supply_type: "Goods" or "Service"
  igst: total IGST amount as a number (inter-state supplies only)
  cgst: total CGST amount as a number
  sgst: total SGST amount as a number
  reverse_charge: true if the invoice is under reverse charge
  line_items: array of {item_name, hsn_code, quantity, rate, amount}`

type completionResponse struct {
	GSTIN         string            `json:"gstin"`
	PlaceOfSupply string            `json:"place_of_supply"`
	HSNCode       string            `json:"hsn_code"`
	SupplyType    string            `json:"supply_type"`
	IGST          *float64          `json:"igst"`
	CGST          *float64          `json:"cgst"`
	SGST          *float64          `json:"sgst"`
	ReverseCharge bool              `json:"reverse_charge"`
	LineItems     []models.LineItem `json:"line_items"`
}

// gstinPattern matches a well-formed GSTIN so model hallucinations get dropped.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

// Complete fills the record's missing GST fields from raw invoice text.
// Populated fields are never overwritten.
func (c *OpenAICompleter) Complete(ctx context.Context, record *models.InvoiceRecord, rawText string) error {
	const op = "Complete"

	if strings.TrimSpace(rawText) == "" {
		return nil
	}

	prompt := fmt.Sprintf("Invoice text:\n\n%s", rawText)
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: c.config.Temperature,
			MaxTokens:   1000,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: completionSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Completion request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := stripCodeFence(resp.Choices[0].Message.Content)
		var parsed completionResponse
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			lastErr = fmt.Errorf("parse completion response: %w", err)
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Unparseable completion response, retrying")
			continue
		}

		c.apply(record, &parsed)
		return nil
	}
	return WrapExtractionError(op, ErrCompletionFailed, fmt.Sprintf("after %d attempts: %v", c.config.MaxRetries, lastErr))
}

func (c *OpenAICompleter) apply(record *models.InvoiceRecord, parsed *completionResponse) {
	if record.GSTIN == "" {
		gstin := strings.ToUpper(strings.ReplaceAll(parsed.GSTIN, " ", ""))
		if gstinPattern.MatchString(gstin) {
			record.GSTIN = gstin
		}
	}
	if record.PlaceOfSupply == "" {
		record.PlaceOfSupply = strings.TrimSpace(parsed.PlaceOfSupply)
	}
	if record.HSNCode == "" && record.SACCode == "" {
		record.HSNCode = strings.TrimSpace(parsed.HSNCode)
	}
	if record.SupplyType == "" {
		record.SupplyType = strings.TrimSpace(parsed.SupplyType)
	}
	if !record.ReverseCharge {
		record.ReverseCharge = parsed.ReverseCharge
	}
	if len(record.LineItems) == 0 {
		record.LineItems = parsed.LineItems
	}

	// An IGST figure in the text means the even CGST/SGST split guessed by
	// the structured extractor was wrong.
	if parsed.IGST != nil && *parsed.IGST > 0 {
		record.IGST = *parsed.IGST
		record.CGST = 0
		record.SGST = 0
	} else if parsed.CGST != nil && parsed.SGST != nil && *parsed.CGST > 0 {
		record.CGST = *parsed.CGST
		record.SGST = *parsed.SGST
		record.IGST = 0
	}

	c.log.Info().
		Str("gstin", record.GSTIN).
		Str("place_of_supply", record.PlaceOfSupply).
		Int("line_items", len(record.LineItems)).
		Msg("Invoice completion applied")
}

// stripCodeFence removes a ```json fence if the model wrapped its answer.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
