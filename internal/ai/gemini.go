package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/incidex/incidex/internal/config"
	"github.com/incidex/incidex/internal/domain"
)

// SuggestionInput is what the model sees: the draft ticket plus the
// catalogs it must pick ids from.
type SuggestionInput struct {
	Title       string
	Description string
	Categories  []domain.Category
	Priorities  []domain.Priority
	Departments []domain.Department
}

// Suggestion is the model's pick. All ids come from the supplied catalogs.
type Suggestion struct {
	CategoryID   int64  `json:"category_id"`
	PriorityID   int64  `json:"priority_id"`
	DepartmentID int64  `json:"department_id"`
	Reason       string `json:"reason"`
}

// Suggester proposes ticket metadata. Returns nil on any failure; the
// caller treats absence as "no suggestion", never as an error.
type Suggester interface {
	Suggest(ctx context.Context, input SuggestionInput) *Suggestion
}

const systemPrompt = `Eres un asistente para un sistema de tickets de soporte.
Elige la mejor CATEGORÍA, PRIORIDAD y DEPARTAMENTO para un ticket nuevo,
usando SOLO los IDs de las listas entregadas. No inventes IDs ni nombres.
Responde EXCLUSIVAMENTE con JSON válido con las claves
category_id, priority_id, department_id y reason.`

// GeminiClient calls the Generative Language REST API.
type GeminiClient struct {
	cfg    config.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiClient builds the client. With no API key configured it still
// constructs; Suggest just returns nil.
func NewGeminiClient(cfg config.GeminiConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Suggest asks the model for metadata. Any error path logs and returns
// nil so ticket creation proceeds without a suggestion.
func (g *GeminiClient) Suggest(ctx context.Context, input SuggestionInput) *Suggestion {
	if g.cfg.APIKey == "" {
		return nil
	}

	options := map[string]any{
		"categories":  catalogOptions(input.Categories),
		"priorities":  priorityOptions(input.Priorities),
		"departments": departmentOptions(input.Departments),
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		g.logger.Warn("suggestion options marshal failed", zap.Error(err))
		return nil
	}

	userPrompt := fmt.Sprintf("Título: %s\n\nDescripción:\n%s\n\nOpciones disponibles (JSON):\n%s",
		input.Title, input.Description, optionsJSON)

	payload := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: systemPrompt}, {Text: userPrompt}}},
		},
		Config: genConfig{Temperature: 0.3},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		g.logger.Warn("suggestion request marshal failed", zap.Error(err))
		return nil
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model, g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		g.logger.Warn("suggestion request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("suggestion call failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("suggestion call rejected", zap.Int("status", resp.StatusCode))
		return nil
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		g.logger.Warn("suggestion response decode failed", zap.Error(err))
		return nil
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil
	}

	return parseSuggestion(decoded.Candidates[0].Content.Parts[0].Text, g.logger)
}

// parseSuggestion tolerates the model wrapping its JSON in a code fence.
func parseSuggestion(text string, logger *zap.Logger) *Suggestion {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "` \n")
	if strings.HasPrefix(strings.ToLower(text), "json") {
		text = strings.TrimSpace(text[4:])
	}

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(text), &suggestion); err != nil {
		logger.Warn("suggestion parse failed", zap.Error(err))
		return nil
	}
	return &suggestion
}

func catalogOptions(categories []domain.Category) []map[string]any {
	options := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		options = append(options, map[string]any{"id": c.ID, "name": c.Name})
	}
	return options
}

func priorityOptions(priorities []domain.Priority) []map[string]any {
	options := make([]map[string]any, 0, len(priorities))
	for _, p := range priorities {
		options = append(options, map[string]any{"id": p.ID, "name": p.Name})
	}
	return options
}

func departmentOptions(departments []domain.Department) []map[string]any {
	options := make([]map[string]any, 0, len(departments))
	for _, d := range departments {
		options = append(options, map[string]any{"id": d.ID, "name": d.Name})
	}
	return options
}
