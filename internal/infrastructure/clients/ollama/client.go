package ollama

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/providers"
	"github.com/sportatlas/backend/pkg/config"
	"github.com/sportatlas/backend/pkg/retry"
)

const (
	defaultTimeout = 25 * time.Second

	// Geocode answers below this confidence are treated as UNKNOWN no
	// matter what status the model claims.
	defaultGeocodeMinConfidence = 40

	geocodeCacheTTLSeconds = 60 * 60 * 24 * 30
)

// Client implements the NLU oracle contract against a locally hosted Ollama
// server. Every call requests strict JSON output at temperature zero with a
// fixed seed; anything the server returns that does not decode into the
// expected shape is an error, never a guessed answer.
type Client struct {
	host                 string
	model                string
	httpClient           *http.Client
	limiter              *tokenBucket
	cache                providers.CacheProvider
	geocodeMinConfidence int
}

var _ providers.NLUProvider = (*Client)(nil)

// NewClient creates a new Ollama-backed NLU client. cache may be nil;
// geocode answers are cached when it is present.
func NewClient(cfg *config.OllamaConfig, cache providers.CacheProvider) (*Client, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, errors.New("ollama host is required")
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	minConfidence := defaultGeocodeMinConfidence
	if cfg.GeocodeMinConfidence > 0 {
		minConfidence = cfg.GeocodeMinConfidence
	}

	return &Client{
		host:  strings.TrimRight(cfg.Host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:              newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		cache:                cache,
		geocodeMinConfidence: minConfidence,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	Seed        int     `json:"seed"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Messages []chatMessage `json:"messages"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// ClassifyIntent maps free text to an intent plus extracted slots.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (*entities.IntentDecision, error) {
	raw, err := c.chat(ctx, "classify_intent", classifySystemPrompt,
		"Classify this request: "+text, 128)
	if err != nil {
		return nil, err
	}

	var decision entities.IntentDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, fmt.Errorf("failed to parse intent decision: %w", err)
	}
	if !decision.Intent.IsValid() {
		return nil, fmt.Errorf("oracle returned unknown intent %q", decision.Intent)
	}
	if decision.Slots.Sort != "" && !decision.Slots.Sort.IsValid() {
		decision.Slots.Sort = entities.SortByDistance
	}
	return &decision, nil
}

// NormalizeDates resolves temporal language in the text relative to now.
// The returned range is syntactically parsed only; the pipeline's sanity
// checker re-validates it.
func (c *Client) NormalizeDates(ctx context.Context, text string, now time.Time) (*entities.DateRange, error) {
	user := fmt.Sprintf(
		"CURRENT_DATE: %s (%s) TZ=Europe/Brussels\nTEXT: %s\nReturn ONLY JSON.",
		now.Format(entities.DateLayout), now.Weekday().String(), text,
	)

	raw, err := c.chat(ctx, "normalize_dates", dateSystemPrompt, user, 256)
	if err != nil {
		return nil, err
	}

	var dr entities.DateRange
	if err := json.Unmarshal(raw, &dr); err != nil {
		return nil, fmt.Errorf("failed to parse date range: %w", err)
	}
	switch dr.Status {
	case entities.DateOK, entities.DateUnclear, entities.DateNoTime:
	default:
		return nil, fmt.Errorf("oracle returned unknown date status %q", dr.Status)
	}
	return &dr, nil
}

// ExtractCities lists place references mentioned in the text.
func (c *Client) ExtractCities(ctx context.Context, text string) ([]entities.CityMention, error) {
	raw, err := c.chat(ctx, "extract_cities", extractCitiesSystemPrompt,
		"Extract cities from: "+text, 128)
	if err != nil {
		return nil, err
	}

	var out struct {
		Mentions []entities.CityMention `json:"mentions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse city mentions: %w", err)
	}
	return out.Mentions, nil
}

// Geocode resolves a free-text place reference to coordinates. Results are
// cached (read-mostly, 30-day TTL) and low-confidence answers are coerced
// to UNKNOWN.
func (c *Client) Geocode(ctx context.Context, text string) (*entities.GeocodeResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("geocode text is required")
	}

	cacheKey := "nlu:geocode:" + hashKey(strings.ToLower(trimmed))
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var res entities.GeocodeResult
			if json.Unmarshal(cached, &res) == nil {
				return &res, nil
			}
		}
	}

	raw, err := c.chat(ctx, "geocode", geocodeSystemPrompt,
		"Geocode this place in Belgium: "+trimmed, 64)
	if err != nil {
		return nil, err
	}

	var res entities.GeocodeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to parse geocode result: %w", err)
	}
	res.SourceText = trimmed

	if res.Status != entities.GeocodeOK || res.Confidence < c.geocodeMinConfidence {
		res = entities.GeocodeResult{Status: entities.GeocodeUnknown, SourceText: trimmed}
	} else if _, ok := res.Coordinate(); !ok {
		res = entities.GeocodeResult{Status: entities.GeocodeUnknown, SourceText: trimmed}
	}

	if c.cache != nil {
		if payload, err := json.Marshal(res); err == nil {
			_ = c.cache.Set(ctx, cacheKey, payload, geocodeCacheTTLSeconds)
		}
	}

	return &res, nil
}

// chat performs one JSON-mode chat completion and returns the cleaned
// message content. Transient failures get a small bounded retry.
func (c *Client) chat(ctx context.Context, operation, system, user string, numPredict int) ([]byte, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordOracleMetric(ctx, c.model, operation, 0, 0, err)
			return nil, err
		}
		recordOracleRateLimitWait(ctx, c.model, operation, time.Since(waitStart))
	}

	body, err := json.Marshal(chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: chatOptions{Temperature: 0, NumPredict: numPredict, Seed: 42},
	})
	if err != nil {
		return nil, err
	}

	var content []byte
	err = retry.Do(ctx, retry.TransientConfig(), func() error {
		var doErr error
		content, doErr = c.doChat(ctx, operation, body)
		return doErr
	}, nil)
	if err != nil {
		return nil, err
	}

	return content, nil
}

func (c *Client) doChat(ctx context.Context, operation string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordOracleMetric(ctx, c.model, operation, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("ollama request failed with status %d", resp.StatusCode)
		recordOracleMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordOracleMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	cleaned := cleanJSONContent(envelope.Message.Content)
	if cleaned == "" {
		err := errors.New("ollama response missing message content")
		recordOracleMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	recordOracleMetric(ctx, c.model, operation, resp.StatusCode, time.Since(start), nil)
	return []byte(cleaned), nil
}

// cleanJSONContent strips Markdown code fences some models wrap around
// their JSON output.
func cleanJSONContent(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
