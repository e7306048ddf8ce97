package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	gcpspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

type clientRecognizer struct{ c *gcpspeech.Client }

func (r clientRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return r.c.Recognize(ctx, req)
}

// GCPEvaluator transcribes with Google Cloud Speech and scores the transcript
// against the reference text.
type GCPEvaluator struct {
	rec      recognizer
	language string
	close    func() error
	log      logrus.FieldLogger
}

var _ usecase.SpeechEvaluator = (*GCPEvaluator)(nil)

func NewGCPEvaluator(ctx context.Context, cfg config.SpeechConfig, logger logrus.FieldLogger) (*GCPEvaluator, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}
	c, err := gcpspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GCPEvaluator{
		rec:      clientRecognizer{c: c},
		language: cfg.LanguageCode,
		close:    c.Close,
		log:      logger.WithField("component", "speech"),
	}, nil
}

func (e *GCPEvaluator) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

func (e *GCPEvaluator) Evaluate(ctx context.Context, req usecase.SpeechRequest) (usecase.SpeechScore, error) {
	score, err := e.evaluate(ctx, req)
	metrics.SpeechEvaluations.WithLabelValues("gcp", metrics.Outcome(err)).Inc()
	return score, err
}

func (e *GCPEvaluator) evaluate(ctx context.Context, req usecase.SpeechRequest) (usecase.SpeechScore, error) {
	audio, err := base64.StdEncoding.DecodeString(stripDataURL(req.AudioBase64))
	if err != nil {
		return usecase.SpeechScore{}, fmt.Errorf("%w: audio is not base64: %w", entity.ErrSpeechEvaluation, err)
	}
	language := e.language
	if language == "" {
		language = "en-US"
	}
	resp, err := e.rec.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			SpeechContexts:             []*speechpb.SpeechContext{{Phrases: []string{req.ReferenceText}}},
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return usecase.SpeechScore{}, fmt.Errorf("%w: %w", entity.ErrSpeechEvaluation, err)
	}

	var (
		parts      []string
		confidence float32
		n          int
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		confidence += alts[0].GetConfidence()
		n++
	}
	transcript := strings.Join(parts, " ")
	if n > 0 {
		confidence /= float32(n)
	}
	score := ScoreTranscript(req.ReferenceText, transcript, float64(confidence))
	e.log.WithFields(logrus.Fields{"core_type": req.CoreType, "score": score}).Debug("speech scored")
	return usecase.SpeechScore{Text: transcript, TotalScore: score}, nil
}

// ScoreTranscript rates a transcript on 0..100 by the share of reference words
// it recalls in order, nudged by recognizer confidence when one is reported.
func ScoreTranscript(reference, transcript string, confidence float64) float64 {
	want := tokens(reference)
	if len(want) == 0 {
		return 0
	}
	got := tokens(transcript)
	matched, j := 0, 0
	for _, w := range want {
		for k := j; k < len(got); k++ {
			if got[k] == w {
				matched++
				j = k + 1
				break
			}
		}
	}
	score := 100 * float64(matched) / float64(len(want))
	if confidence > 0 && confidence <= 1 {
		score *= 0.8 + 0.2*confidence
	}
	return float64(int(score*10+0.5)) / 10
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func stripDataURL(s string) string {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		return s[i+len(";base64,"):]
	}
	return strings.TrimSpace(s)
}
