package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/pkg/utils"
)

// PaperContext is optional structural metadata included in the prompt so the
// model knows what the converted document contains.
type PaperContext struct {
	Pages      int
	ImageCount int
}

// Orchestrator issues one chat-completion request per analysis pass and
// normalizes the reply into a models.AnalysisResult. No retries, no
// streaming; the only failure that escapes as a Go error is an invalid pass.
type Orchestrator struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOrchestrator builds an orchestrator for the configured endpoint. The
// API key is read from the environment variable named by cfg.APIKeyEnv;
// a missing key is a startup error, not a per-request one.
func NewOrchestrator(cfg *config.LLMConfig, logger *zap.Logger) (*Orchestrator, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		// OpenRouter attribution headers; other endpoints ignore them.
		option.WithHeader("HTTP-Referer", "https://github.com/hyperjump/ronbun"),
		option.WithHeader("X-Title", "Research Paper Analyzer"),
	)
	return &Orchestrator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.TemperatureOrDefault(),
		timeout:     cfg.Timeout(),
		logger:      logger,
	}, nil
}

// Analyze runs one pass over the extracted text. The returned result always
// carries either the parsed pass data or an in-band error record; a non-nil
// error is returned only for an invalid pass number.
func (o *Orchestrator) Analyze(ctx context.Context, text string, pass Pass, paper *PaperContext) (*models.AnalysisResult, error) {
	prompt, err := buildPrompt(pass, text, paper)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("starting analysis",
		zap.Int("pass", int(pass)),
		zap.Int("prompt_chars", len(prompt)),
	)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxTokens:   openai.Int(int64(o.maxTokens)),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		o.logger.Error("model request failed", zap.Int("pass", int(pass)), zap.Error(err))
		return models.NewAnalysisError(models.ErrAnalysisFailed, err.Error(), ""), nil
	}
	if len(resp.Choices) == 0 {
		return models.NewAnalysisError(models.ErrAnalysisFailed, "no response choices returned", ""), nil
	}

	cleaned := CleanResponse(resp.Choices[0].Message.Content)
	o.logger.Debug("model reply received",
		zap.Int("pass", int(pass)),
		zap.String("reply", utils.Truncate(cleaned, 200)),
	)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		o.logger.Warn("reply is not valid JSON", zap.Int("pass", int(pass)), zap.Error(err))
		return models.NewAnalysisError(models.ErrParseFailed, err.Error(), cleaned), nil
	}

	if missing := missingKeys(pass, data); len(missing) > 0 {
		details := "missing fields: " + strings.Join(missing, ", ")
		o.logger.Warn("reply does not match pass schema", zap.Int("pass", int(pass)), zap.String("details", details))
		return models.NewAnalysisError(models.ErrSchemaValidation, details, cleaned), nil
	}

	return models.NewAnalysisData(data), nil
}

// buildPrompt assembles the pass template, an optional structure hint, and
// the paper content into one user message.
func buildPrompt(pass Pass, text string, paper *PaperContext) (string, error) {
	tmpl, err := passTemplate(pass)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(tmpl)
	if paper != nil && (paper.Pages > 0 || paper.ImageCount > 0) {
		fmt.Fprintf(&sb, "\n\nThe converted document has %d pages and %d extracted figures.", paper.Pages, paper.ImageCount)
	}
	sb.WriteString("\n\nPaper content: ")
	sb.WriteString(text)
	return sb.String(), nil
}
