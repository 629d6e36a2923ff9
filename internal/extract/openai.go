package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "kyogisho/pkg/domain-errors"
)

// extractionPrompt instructs the model to read the 全体集計表 and answer with the
// draft record shape only. Kept in Japanese to match the sheets it reads.
const extractionPrompt = `この画像は相続財産と相続人の一覧表（全体集計表）です。
以下の情報を抽出し、指定されたJSON形式のみを返してください。余計な説明は不要です。

**抽出項目:**
1. 被相続人（亡くなった方）の情報（氏名、死亡日、最後の住所 - 画像になければ空でOK）
2. 相続人リスト（氏名、続柄、現在の住所）
3. 財産リスト（種類: 不動産/預貯金/株式など、詳細: 所在や口座番号など、評価額）

**JSON Schema:**
{
  "deceased": { "name": "...", "deathDate": "...", "lastAddress": "..." },
  "heirs": [
    { "name": "...", "relation": "...", "address": "..." }
  ],
  "properties": [
    { "type": "...", "details": "...", "value": "..." }
  ]
}`

const systemPrompt = "You extract structured inheritance data from Japanese asset-inventory sheets. Respond with the requested JSON object only."

// Config holds OpenAI gateway configuration.
type Config struct {
	APIKey  string
	BaseURL string
	// Model name; empty selects gpt-4o-mini.
	Model string
	// Timeout bounds one extraction call.
	Timeout time.Duration
	// MaxTokens limits the response length; 0 selects a default.
	MaxTokens int
}

// OpenAIGateway implements Gateway against the OpenAI vision chat API.
type OpenAIGateway struct {
	client *openai.Client
	config Config
	tracer trace.Tracer
}

// NewOpenAIGateway creates the gateway. The API key is required.
func NewOpenAIGateway(config Config) (*OpenAIGateway, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		tracer: otel.Tracer("kyogisho/extract"),
	}, nil
}

// Extract sends the sheet to the model and returns the raw JSON answer. Failures
// surface as extraction_failed except deadline expiry, which maps to timeout so
// the client can retry.
func (g *OpenAIGateway) Extract(ctx context.Context, file File) (json.RawMessage, error) {
	ctx, span := g.tracer.Start(ctx, "extract.openai",
		trace.WithAttributes(
			attribute.String("file.content_type", file.ContentType),
			attribute.Int("file.size_bytes", len(file.Data)),
		))
	defer span.End()

	model := g.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := g.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	timeout := g.config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dataURL := fmt.Sprintf("data:%s;base64,%s", file.ContentType, base64.StdEncoding.EncodeToString(file.Data))

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(dErrors.CodeTimeout, "extraction timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, dErrors.Wrap(dErrors.CodeExtractionFailed, "extraction request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, dErrors.New(dErrors.CodeExtractionFailed, "model returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeExtractionFailed, "model returned empty content")
	}
	return json.RawMessage(content), nil
}
