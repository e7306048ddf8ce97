package grpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"

	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/usecase"
)

// ProgressRoutes serves read-only progress over plain REST on the gateway mux.
type ProgressRoutes struct {
	uc        usecase.ChallengeUsecase
	marshaler runtime.Marshaler
	log       logrus.FieldLogger
}

func NewProgressRoutes(uc usecase.ChallengeUsecase, logger logrus.FieldLogger) *ProgressRoutes {
	return &ProgressRoutes{
		uc:        uc,
		marshaler: &runtime.JSONBuiltin{},
		log:       logger.WithField("component", "gateway"),
	}
}

// NewServeMux builds the gateway mux with the progress routes attached.
func (p *ProgressRoutes) NewServeMux() (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux(runtime.WithMarshalerOption(runtime.MIMEWildcard, p.marshaler))
	if err := p.Register(mux); err != nil {
		return nil, err
	}
	return mux, nil
}

func (p *ProgressRoutes) Register(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodGet, "/v1/tasks/{task_id}/progress", p.taskProgress); err != nil {
		return fmt.Errorf("register task progress route: %w", err)
	}
	if err := mux.HandlePath(http.MethodGet, "/v1/tasks/{task_id}/groups/{group_index}/progress", p.groupProgress); err != nil {
		return fmt.Errorf("register group progress route: %w", err)
	}
	return nil
}

func (p *ProgressRoutes) taskProgress(w http.ResponseWriter, r *http.Request, params map[string]string) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		p.writeError(r.Context(), w, entity.ErrUnauthenticated)
		return
	}
	progress, err := p.uc.TaskProgress(r.Context(), a, params["task_id"])
	if err != nil {
		p.writeError(r.Context(), w, err)
		return
	}
	p.write(w, http.StatusOK, mapping.ToPbTaskProgress(progress))
}

func (p *ProgressRoutes) groupProgress(w http.ResponseWriter, r *http.Request, params map[string]string) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		p.writeError(r.Context(), w, entity.ErrUnauthenticated)
		return
	}
	groupIndex, err := strconv.Atoi(params["group_index"])
	if err != nil {
		p.writeError(r.Context(), w, fmt.Errorf("%w: %q", entity.ErrInvalidGroupIndex, params["group_index"]))
		return
	}
	progress, err := p.uc.GroupProgress(r.Context(), a, params["task_id"], groupIndex)
	if err != nil {
		p.writeError(r.Context(), w, err)
		return
	}
	p.write(w, http.StatusOK, mapping.ToPbGroupProgress(progress))
}

type errorBody struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

func (p *ProgressRoutes) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code, reason := mapping.Classify(err)
	if code == codes.Internal && !errors.Is(err, entity.ErrGenerationFailed) {
		p.log.WithError(err).Error("progress request failed")
	}
	if reason != "" {
		w.Header().Set(mapping.ErrorReasonHeader, reason)
	}
	p.write(w, runtime.HTTPStatusFromCode(code), errorBody{Code: code.String(), Reason: reason, Message: err.Error()})
}

func (p *ProgressRoutes) write(w http.ResponseWriter, status int, body any) {
	data, err := p.marshaler.Marshal(body)
	if err != nil {
		p.log.WithError(err).Error("marshal gateway response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", p.marshaler.ContentType(body))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
