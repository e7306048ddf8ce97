package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

// HTTPEvaluator calls the voice evaluation endpoint of the AI service.
type HTTPEvaluator struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	log        logrus.FieldLogger
}

var _ usecase.SpeechEvaluator = (*HTTPEvaluator)(nil)

func NewHTTPEvaluator(cfg config.SpeechConfig, ai config.AIConfig, logger logrus.FieldLogger) (*HTTPEvaluator, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("speech.endpoint is required")
	}
	if ai.AppID == "" || ai.AppKey == "" {
		return nil, fmt.Errorf("ai.app_id and ai.app_key are required for speech evaluation")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEvaluator{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     ai.AppID + ":" + ai.AppKey,
		log:        logger.WithField("component", "speech"),
	}, nil
}

type evaluationRequest struct {
	Model     string         `json:"model"`
	Audio     string         `json:"audio"`
	Text      string         `json:"text"`
	ExtraBody map[string]any `json:"extra_body"`
}

type evaluationResponse struct {
	Data struct {
		Text       string  `json:"text"`
		TotalScore float64 `json:"totalScore"`
	} `json:"data"`
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, req usecase.SpeechRequest) (usecase.SpeechScore, error) {
	score, err := e.evaluate(ctx, req)
	metrics.SpeechEvaluations.WithLabelValues("http", metrics.Outcome(err)).Inc()
	return score, err
}

func (e *HTTPEvaluator) evaluate(ctx context.Context, req usecase.SpeechRequest) (usecase.SpeechScore, error) {
	body, err := json.Marshal(evaluationRequest{
		Model:     e.model,
		Audio:     req.AudioBase64,
		Text:      req.ReferenceText,
		ExtraBody: map[string]any{"coreType": string(req.CoreType)},
	})
	if err != nil {
		return usecase.SpeechScore{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return usecase.SpeechScore{}, err
	}
	httpReq.Header.Set("api-key", e.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return usecase.SpeechScore{}, fmt.Errorf("%w: %w", entity.ErrSpeechEvaluation, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return usecase.SpeechScore{}, fmt.Errorf("%w: read body: %w", entity.ErrSpeechEvaluation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.log.WithField("status", resp.StatusCode).Warn("voice evaluation rejected")
		return usecase.SpeechScore{}, fmt.Errorf("%w: http %d: %s", entity.ErrSpeechEvaluation, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out evaluationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return usecase.SpeechScore{}, fmt.Errorf("%w: decode: %w", entity.ErrSpeechEvaluation, err)
	}
	return usecase.SpeechScore{Text: out.Data.Text, TotalScore: out.Data.TotalScore}, nil
}
