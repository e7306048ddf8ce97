package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/usecase"
)

const (
	_defaultTimeout = 90 * time.Second
	_maxBackoff     = 8 * time.Second
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     map[usecase.ModelKind]string
	maxRetries int
	backoff    time.Duration
	log        logrus.FieldLogger
}

var _ usecase.TextGenerator = (*Client)(nil)

func NewClient(cfg config.AIConfig, logger logrus.FieldLogger) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppKey) == "" {
		return nil, errors.New("ai.app_id and ai.app_key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = _defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.AppID + ":" + cfg.AppKey,
		models: map[usecase.ModelKind]string{
			usecase.ModelText:   cfg.TextModel,
			usecase.ModelVision: cfg.VisionModel,
		},
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    500 * time.Millisecond,
		log:        logger.WithField("component", "llm"),
	}, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai http %d: %s", e.StatusCode, e.Body)
}

func (c *Client) Complete(ctx context.Context, req usecase.ChatRequest) (usecase.RawResponse, error) {
	model := c.models[req.Model]
	if model == "" {
		model = c.models[usecase.ModelText]
	}

	var content any = req.Prompt
	if req.ImageURL != "" {
		content = []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
		}
	}
	body := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}

	var out chatResponse
	if err := c.do(ctx, "/chat/completions", body, &out); err != nil {
		return usecase.RawResponse{}, err
	}
	if len(out.Choices) == 0 {
		return usecase.RawResponse{}, errors.New("ai response has no choices")
	}
	return decodeContent(out.Choices[0].Message.Content)
}

// decodeContent keeps the provider's content shape: plain string, list of
// parts, or a structured object.
func decodeContent(raw json.RawMessage) (usecase.RawResponse, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return usecase.TextResponse(""), nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return usecase.RawResponse{}, fmt.Errorf("decode content: %w", err)
		}
		return usecase.TextResponse(text), nil
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return usecase.RawResponse{}, fmt.Errorf("decode content parts: %w", err)
		}
		return decodeParts(parts), nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return usecase.RawResponse{}, fmt.Errorf("decode content object: %w", err)
		}
		return usecase.ObjectResponse(obj), nil
	default:
		return usecase.TextResponse(string(trimmed)), nil
	}
}

// decodeParts joins text parts. Without any text, the first structured
// object part is returned instead. Parts of any other shape are skipped.
func decodeParts(parts []json.RawMessage) usecase.RawResponse {
	var (
		fragments []string
		object    map[string]any
	)
	for _, p := range parts {
		var text string
		if json.Unmarshal(p, &text) == nil {
			fragments = append(fragments, text)
			continue
		}
		var obj map[string]any
		if json.Unmarshal(p, &obj) != nil {
			continue
		}
		kind, _ := obj["type"].(string)
		if t, ok := obj["text"].(string); ok && (kind == "" || kind == "text") {
			fragments = append(fragments, t)
			continue
		}
		if object == nil && kind != "text" && kind != "image_url" {
			object = obj
		}
	}
	if len(fragments) == 0 && object != nil {
		return usecase.ObjectResponse(object)
	}
	return usecase.FragmentResponse(fragments...)
}

func (c *Client) doOnce(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ai decode error: %w", uErr)
			}
			return nil
		}
		if !retryable(err) || attempt >= c.maxRetries {
			return err
		}

		wait := backoff
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.retryAfter > 0 {
			wait = httpErr.retryAfter
		}
		wait = min(wait, _maxBackoff)
		c.log.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
			"sleep":   wait.String(),
		}).WithError(err).Warn("ai request retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
