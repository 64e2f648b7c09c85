package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/domain/document"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Config holds OpenAI drafter settings
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, e.g. for a proxy
	BaseURL string
}

// Drafter implements port.BodyDrafter using OpenAI chat completions
type Drafter struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewDrafter creates a new OpenAI drafter
func NewDrafter(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Drafter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Drafter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// promptData is what the user template sees
type promptData struct {
	EmployeeName  string
	Designation   string
	Department    string
	VisitFrom     string
	VisitTo       string
	Duration      int
	City          string
	Country       string
	NatureOfVisit string
	ClaimType     string
	Subject       string
	ReferenceText string
}

// DraftBody asks the model for an office-order body for task
func (d *Drafter) DraftBody(ctx context.Context, task *entity.Task) (document.Document, error) {
	prompt, err := renderTemplate(d.prompts.BodyDraft.UserTemplate, promptData{
		EmployeeName:  task.Employee.Name,
		Designation:   task.Employee.Designation,
		Department:    task.Employee.Department,
		VisitFrom:     task.Visit.From.Format("02.01.2006"),
		VisitTo:       task.Visit.To.Format("02.01.2006"),
		Duration:      task.Duration(),
		City:          task.Visit.City,
		Country:       task.Visit.Country,
		NatureOfVisit: task.Visit.NatureOfVisit,
		ClaimType:     task.Visit.ClaimType,
		Subject:       task.OfficeOrder.Subject,
		ReferenceText: task.OfficeOrder.ReferenceText,
	})
	if err != nil {
		return document.Document{}, err
	}

	d.logger.Debug("Drafting office order body",
		zap.String("cover_page_no", task.CoverPageNo),
		zap.String("model", d.model))

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: d.prompts.BodyDraft.Temperature,
		MaxTokens:   d.prompts.BodyDraft.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: d.prompts.BodyDraft.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		d.logger.Error("OpenAI API call failed", zap.Error(err))
		return document.Document{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return document.Document{}, fmt.Errorf("no response from OpenAI")
	}

	doc, err := parseBody(resp.Choices[0].Message.Content)
	if err != nil {
		d.logger.Error("Failed to parse OpenAI response",
			zap.Error(err),
			zap.String("content", resp.Choices[0].Message.Content))
		return document.Document{}, err
	}

	d.logger.Info("Office order body drafted",
		zap.String("cover_page_no", task.CoverPageNo),
		zap.Int("blocks", len(doc.Blocks)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return doc, nil
}

// parseBody accepts the JSON block form, JSON wrapped in prose or code
// fences, or plain HTML
func parseBody(content string) (document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal([]byte(content), &doc); err == nil {
		return doc, nil
	}

	if jsonStr := extractJSON(content); jsonStr != "" {
		if err := json.Unmarshal([]byte(jsonStr), &doc); err == nil {
			return doc, nil
		}
	}

	if strings.Contains(content, "<p") || strings.Contains(content, "<table") {
		return document.ParseHTML(content)
	}

	return document.Document{}, fmt.Errorf("failed to parse response: no document found")
}

// extractJSON extracts the first JSON object from free text
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONEnd finds the end of the JSON object starting at start
func findJSONEnd(content string, start int) int {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		c := content[i]

		switch {
		case escapeNext:
			escapeNext = false
		case c == '\\' && inString:
			escapeNext = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
