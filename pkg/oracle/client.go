package oracle

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flysch/matchd/internal/retry"
)

// Options tunes the SDK-backed client.
type Options struct {
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewClient creates an oracle client backed by the Anthropic SDK. Requests
// are paced with a per-minute rate limiter.
func NewClient(apiKey string, opts Options) Client {
	model := opts.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60), 1),
	}
}

func (c *sdkClient) Rank(ctx context.Context, req RankRequest) (*RankResult, error) {
	if len(req.Candidates) == 0 {
		return nil, eris.New("oracle: no candidates to rank")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "oracle: rate limit wait")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: build prompt")
	}

	msg, err := retry.Do(ctx, retry.Config{ShouldRetry: shouldRetryAPI}, func(ctx context.Context) (*sdk.Message, error) {
		return c.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(c.model),
			MaxTokens: c.maxTokens,
			System: []sdk.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "oracle: create message")
	}

	texts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}

	result, err := parseRankResult(extractText(texts))
	if err != nil {
		return nil, err
	}

	zap.L().Debug("oracle ranked candidates",
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("rankings", len(result.Rankings)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return result, nil
}

// shouldRetryAPI treats rate limits and server-side failures as retryable in
// addition to network-level transients. Context errors never retry.
func shouldRetryAPI(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if retry.IsTransient(err) {
		return true
	}
	// API errors carry their type in the message body.
	msg := err.Error()
	for _, marker := range []string{"rate_limit_error", "overloaded_error", "api_error", "timeout_error"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
