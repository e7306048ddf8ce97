package connectrpc

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/samber/lo"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

type ChallengeServiceServer struct {
	uc usecase.ChallengeUsecase
}

func NewChallengeServiceServer(uc usecase.ChallengeUsecase) *ChallengeServiceServer {
	return &ChallengeServiceServer{uc: uc}
}

func (s *ChallengeServiceServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + storyquestv1.ChallengeServiceName + "/", serviceHandler([]route{
		{storyquestv1.ChallengeServiceSubmitAttemptProcedure, connect.NewUnaryHandler(storyquestv1.ChallengeServiceSubmitAttemptProcedure, s.SubmitAttempt, opts...)},
		{storyquestv1.ChallengeServiceEvaluateSpeechProcedure, connect.NewUnaryHandler(storyquestv1.ChallengeServiceEvaluateSpeechProcedure, s.EvaluateSpeech, opts...)},
		{storyquestv1.ChallengeServiceGetGroupProgressProcedure, connect.NewUnaryHandler(storyquestv1.ChallengeServiceGetGroupProgressProcedure, s.GetGroupProgress, opts...)},
		{storyquestv1.ChallengeServiceGetTaskProgressProcedure, connect.NewUnaryHandler(storyquestv1.ChallengeServiceGetTaskProgressProcedure, s.GetTaskProgress, opts...)},
	})
}

func (s *ChallengeServiceServer) SubmitAttempt(ctx context.Context, req *connect.Request[storyquestv1.SubmitAttemptRequest]) (*connect.Response[storyquestv1.SubmitAttemptResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	cardID := strings.TrimSpace(req.Msg.CardID)
	if cardID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("card_id required"))
	}
	resp := mapping.FromPbResponse(req.Msg.Response)
	result, err := s.uc.Submit(ctx, a, taskID, cardID, resp)
	if err != nil {
		return nil, err
	}
	metrics.ChallengeAttempts.WithLabelValues(string(resp.Type), strconv.FormatBool(result.Judgment.Passed)).Inc()
	return connect.NewResponse(lo.ToPtr(mapping.ToPbSubmitResult(result))), nil
}

func (s *ChallengeServiceServer) EvaluateSpeech(ctx context.Context, req *connect.Request[storyquestv1.EvaluateSpeechRequest]) (*connect.Response[storyquestv1.SpeechScore], error) {
	if _, err := currentActor(ctx); err != nil {
		return nil, err
	}
	score, err := s.uc.EvaluateSpeech(ctx, req.Msg.AudioBase64, req.Msg.Text, usecase.SpeechCoreType(strings.TrimSpace(req.Msg.CoreType)))
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbSpeechScore(score))), nil
}

func (s *ChallengeServiceServer) GetGroupProgress(ctx context.Context, req *connect.Request[storyquestv1.GroupProgressRequest]) (*connect.Response[storyquestv1.GroupProgress], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	progress, err := s.uc.GroupProgress(ctx, a, taskID, req.Msg.GroupIndex)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbGroupProgress(progress))), nil
}

func (s *ChallengeServiceServer) GetTaskProgress(ctx context.Context, req *connect.Request[storyquestv1.TaskIDRequest]) (*connect.Response[storyquestv1.TaskProgress], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	progress, err := s.uc.TaskProgress(ctx, a, taskID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbTaskProgress(progress))), nil
}
