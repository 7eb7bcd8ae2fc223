package analyze

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"

	analysisSystemPrompt = `You are a Japanese language analysis engine.
Split the input into sentences and for each sentence produce: the original
text, Hepburn romaji, an English translation, the sentence structure
pattern, notable grammar points, a short analysis, and the vocabulary it
uses (word, romaji, meaning). For image input, first read the Japanese
text off the page, then analyze it the same way. Respond with JSON only,
matching the provided schema. If the input contains no Japanese text,
return an empty sentences array.`
)

// OpenAIConfig holds configuration for the OpenAI analyzer.
type OpenAIConfig struct {
	APIKey      string
	Model       string        // "gpt-4o-mini" (default)
	RateLimit   int           // Requests per minute
	MaxRetries  int           // Attempts per call
	RetryDelay  time.Duration // Base backoff delay
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // HTTP timeout
	BaseURL     string        // Optional (tests)
	HTTPClient  *http.Client  // Optional (tests)
	Logger      *slog.Logger
}

// OpenAIAnalyzer implements Analyzer using the official OpenAI SDK.
type OpenAIAnalyzer struct {
	model       string
	maxRetries  int
	retryDelay  time.Duration
	temperature float64
	maxTokens   int
	limiter     *rateLimiter
	client      openai.Client
	logger      *slog.Logger
}

// NewOpenAIAnalyzer creates an analyzer backed by the OpenAI chat API.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retry handled here, with the limiter in the loop
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	return &OpenAIAnalyzer{
		model:       cfg.Model,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     newRateLimiter(cfg.RateLimit),
		client:      openai.NewClient(opts...),
		logger:      cfg.Logger,
	}
}

// Name returns the analyzer identifier.
func (a *OpenAIAnalyzer) Name() string {
	return OpenAIName
}

// Model returns the configured model name.
func (a *OpenAIAnalyzer) Model() string {
	return a.model
}

// Analyze runs one analysis call with rate limiting and retries. Schema
// validation failures are retried too, since a fresh completion usually
// parses.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req *Request) (*Result, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return nil, err
	}

	var result *Result
	attempts := 0
	err = retry.Do(
		func() error {
			attempts++
			if err := a.limiter.wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := a.client.Chat.Completions.New(ctx, params)
			if err != nil {
				var apierr *openai.Error
				if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
					a.limiter.drain()
				}
				return fmt.Errorf("chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("empty choices in completion")
			}

			sentences, err := ParseSentences(resp.Choices[0].Message.Content)
			if err != nil {
				return err
			}

			result = &Result{
				Sentences:        sentences,
				Model:            resp.Model,
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(a.maxRetries)),
		retry.Delay(a.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("analysis call failed, retrying",
				"attempt", n+1,
				"request_id", req.RequestID,
				"error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	result.Attempts = attempts
	return result, nil
}

func (a *OpenAIAnalyzer) buildParams(req *Request) (openai.ChatCompletionNewParams, error) {
	var userMessage openai.ChatCompletionMessageParamUnion
	switch {
	case len(req.Image) > 0:
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Image))
		userMessage = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart("Analyze the Japanese text on this page."),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	case req.Text != "":
		userMessage = openai.UserMessage(req.Text)
	default:
		return openai.ChatCompletionNewParams{}, fmt.Errorf("analysis request needs text or an image")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysisSystemPrompt),
			userMessage,
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "japanese_sentence_analysis",
					Schema: ResponseSchema(),
					Strict: param.NewOpt(true),
				},
			},
		},
	}
	if a.temperature != 0 {
		params.Temperature = param.NewOpt(a.temperature)
	}
	if a.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(a.maxTokens))
	}
	return params, nil
}
