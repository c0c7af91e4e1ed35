// Package lookup identifies medicines and translates their details through
// the Gemini generateContent API. Every call is an independent request,
// nothing is retried or cached.
package lookup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/config"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/medicine"
	"git.0xdad.com/tblyler/medilens/metrics"
)

var (
	// ErrLookup occurs when a lookup can not produce a complete medicine record
	ErrLookup = errors.New("medicine lookup failed")
	// ErrTranslation occurs when a record can not be translated
	ErrTranslation = errors.New("translation failed")

	// errRejected marks answers the backend produced fine but that can not be
	// used, they do not count against the circuit breaker
	errRejected = errors.New("response rejected")
)

// finishStop is the only finish reason of a complete answer
const finishStop = "STOP"

// DefaultImageMimeType when the caller does not know the image type
const DefaultImageMimeType = "image/jpeg"

const (
	imageInstruction = "Analyze this medicine label or prescription. Extract the medicine name, dosage, and details. " +
		"Then, search for generic alternatives that are FDA approved. For each alternative, provide an estimated " +
		"retail price range. Return the data in structured JSON format."

	namePrompt = "Find FDA-approved generic alternatives for the drug: %s. Include full details about the drug, " +
		"its indications, side effects, and a list of generic versions with their estimated retail price ranges."

	translatePrompt = "Translate the following medicine information into %s. Ensure medical terms are accurate " +
		"and the tone is helpful.\nMedicine: %s\nInstructions: %s\nIndications: %s\nSide Effects: %s"

	maxErrorBody = 4 << 10
)

// Config of the Gemini client
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout of a single request, zero means one minute
	Timeout time.Duration
	// Grounding enables the Google Search tool on medicine lookups
	Grounding bool
	// FailureThreshold of consecutive failures that opens the breaker, zero means 5
	FailureThreshold uint32
	// OpenTimeout before a tripped breaker lets a probe through, zero means 30 seconds
	OpenTimeout time.Duration
}

// Client for the Gemini generateContent endpoint
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New client
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Model == "" {
		cfg.Model = config.DefaultGeminiModel
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logging.OrNop(logger),
		metrics: m,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isBackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

// LookupByImage identifies the medicine on a label or prescription photo
func (c *Client) LookupByImage(ctx context.Context, image []byte, mimeType string) (*medicine.Record, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrLookup)
	}

	if mimeType == "" {
		mimeType = DefaultImageMimeType
	}

	req := c.recordRequest(part{
		InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		},
	}, part{Text: imageInstruction})

	return c.lookupRecord(ctx, metrics.KindImage, req)
}

// LookupByName finds a medicine and its generic alternatives by name
func (c *Client) LookupByName(ctx context.Context, query string) (*medicine.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrLookup)
	}

	req := c.recordRequest(part{Text: fmt.Sprintf(namePrompt, query)})

	return c.lookupRecord(ctx, metrics.KindName, req)
}

// Translate the record's details into the named language as free text
func (c *Client) Translate(ctx context.Context, rec *medicine.Record, languageName string) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: no medicine to translate", ErrTranslation)
	}

	prompt := fmt.Sprintf(translatePrompt,
		languageName,
		rec.Name,
		rec.DosageInstructions,
		rec.Indications,
		strings.Join(rec.SideEffects, ", "),
	)

	start := time.Now()
	text, err := c.generate(ctx, &generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty translation")
	}
	c.metrics.ObserveLookup(metrics.KindTranslate, time.Since(start).Seconds(), err)

	if err != nil {
		c.logger.Warn("translation failed",
			zap.String("medicine", rec.Name),
			zap.String("language", languageName),
			zap.Error(err))

		return "", fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	return strings.TrimSpace(text), nil
}

func (c *Client) recordRequest(parts ...part) *generateRequest {
	req := &generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   medicineSchema(),
		},
	}

	if c.cfg.Grounding {
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	return req
}

func (c *Client) lookupRecord(ctx context.Context, kind string, req *generateRequest) (*medicine.Record, error) {
	start := time.Now()

	rec, err := func() (*medicine.Record, error) {
		text, err := c.generate(ctx, req)
		if err != nil {
			return nil, err
		}

		return decodeRecord(text)
	}()
	c.metrics.ObserveLookup(kind, time.Since(start).Seconds(), err)

	if err != nil {
		c.logger.Warn("medicine lookup failed", zap.String("kind", kind), zap.Error(err))

		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	c.logger.Info("medicine identified",
		zap.String("kind", kind),
		zap.String("medicine", rec.Name),
		zap.Int("generic_alternatives", len(rec.GenericAlternatives)))

	return rec, nil
}

// generate runs one request through the circuit breaker and returns the
// concatenated text of the first candidate
func (c *Client) generate(ctx context.Context, req *generateRequest) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		return "", err
	}

	return out.(string), nil
}

func (c *Client) do(ctx context.Context, req *generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", c.cfg.Model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if clientError(resp.StatusCode) {
			err = fmt.Errorf("%w: %w", errRejected, err)
		}

		return "", err
	}

	var decoded generateResponse
	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: request blocked: %s", errRejected, decoded.PromptFeedback.BlockReason)
	}

	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", errRejected)
	}

	// anything but STOP is a cut off or filtered answer, repairing it would
	// pass a partial record off as complete
	finishReason := decoded.Candidates[0].FinishReason
	if finishReason != "" && finishReason != finishStop {
		return "", fmt.Errorf("%w: answer incomplete, finish reason %s", errRejected, finishReason)
	}

	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", errRejected)
	}

	return text.String(), nil
}

// clientError reports statuses caused by the request itself rather than an
// unhealthy backend. Timeouts and rate limits still count as failures.
func clientError(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}

	return status >= 400 && status < 500
}

// isBackendHealthy decides whether a call counts as a success for the circuit
// breaker. A caller hanging up or an unusable answer says nothing about the
// backend's health.
func isBackendHealthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errRejected)
}
