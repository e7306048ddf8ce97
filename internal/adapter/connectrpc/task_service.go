package connectrpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/samber/lo"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/repository"
	"github.com/eslsoft/storyquest/internal/usecase"
)

type TaskServiceServer struct {
	uc usecase.TaskUsecase
}

func NewTaskServiceServer(uc usecase.TaskUsecase) *TaskServiceServer {
	return &TaskServiceServer{uc: uc}
}

// Handler mounts every TaskService procedure under its service path.
func (s *TaskServiceServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return "/" + storyquestv1.TaskServiceName + "/", serviceHandler([]route{
		{storyquestv1.TaskServiceCreateTaskProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceCreateTaskProcedure, s.CreateTask, opts...)},
		{storyquestv1.TaskServiceRecognizeWordsProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceRecognizeWordsProcedure, s.RecognizeWords, opts...)},
		{storyquestv1.TaskServiceRecognizePreviewProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceRecognizePreviewProcedure, s.RecognizePreview, opts...)},
		{storyquestv1.TaskServiceConfirmWordsProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceConfirmWordsProcedure, s.ConfirmWords, opts...)},
		{storyquestv1.TaskServiceUpdateGroupsProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceUpdateGroupsProcedure, s.UpdateGroups, opts...)},
		{storyquestv1.TaskServiceGenerateContentProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceGenerateContentProcedure, s.GenerateContent, opts...)},
		{storyquestv1.TaskServiceListTasksProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceListTasksProcedure, s.ListTasks, opts...)},
		{storyquestv1.TaskServiceGetTaskProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceGetTaskProcedure, s.GetTask, opts...)},
		{storyquestv1.TaskServiceCompleteTaskProcedure, connect.NewUnaryHandler(storyquestv1.TaskServiceCompleteTaskProcedure, s.CompleteTask, opts...)},
	})
}

func (s *TaskServiceServer) CreateTask(ctx context.Context, req *connect.Request[storyquestv1.CreateTaskRequest]) (*connect.Response[storyquestv1.Task], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	task, err := s.uc.CreateTask(ctx, a, req.Msg.Title, req.Msg.Grade)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbTask(task))), nil
}

func (s *TaskServiceServer) RecognizeWords(ctx context.Context, req *connect.Request[storyquestv1.RecognizeWordsRequest]) (*connect.Response[storyquestv1.RecognizeWordsResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	words, err := s.uc.RecognizeWords(ctx, a, taskID, usecase.RecognitionInput{
		Text:      req.Msg.Text,
		ImageURLs: lo.Compact(lo.Map(req.Msg.ImageURLs, func(u string, _ int) string { return strings.TrimSpace(u) })),
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&storyquestv1.RecognizeWordsResponse{Words: mapping.ToPbRecognizedWords(words)}), nil
}

func (s *TaskServiceServer) RecognizePreview(ctx context.Context, req *connect.Request[storyquestv1.RecognizePreviewRequest]) (*connect.Response[storyquestv1.RecognizeWordsResponse], error) {
	if _, err := currentActor(ctx); err != nil {
		return nil, err
	}
	imageURL := strings.TrimSpace(req.Msg.ImageURL)
	if imageURL == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("image_url required"))
	}
	words, err := s.uc.RecognizePreview(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&storyquestv1.RecognizeWordsResponse{Words: mapping.ToPbRecognizedWords(words)}), nil
}

func (s *TaskServiceServer) ConfirmWords(ctx context.Context, req *connect.Request[storyquestv1.ConfirmWordsRequest]) (*connect.Response[storyquestv1.WordGroupsResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	groups, err := s.uc.ConfirmWords(ctx, a, taskID, mapping.FromPbWords(req.Msg.Words))
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&storyquestv1.WordGroupsResponse{Groups: mapping.ToPbWordGroups(groups)}), nil
}

func (s *TaskServiceServer) UpdateGroups(ctx context.Context, req *connect.Request[storyquestv1.UpdateGroupsRequest]) (*connect.Response[storyquestv1.WordGroupsResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	groups, err := s.uc.UpdateGroups(ctx, a, taskID, mapping.FromPbWordGroups(req.Msg.Groups))
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&storyquestv1.WordGroupsResponse{Groups: mapping.ToPbWordGroups(groups)}), nil
}

// GenerateContent reports domain failures in the body rather than as an RPC error.
func (s *TaskServiceServer) GenerateContent(ctx context.Context, req *connect.Request[storyquestv1.TaskIDRequest]) (*connect.Response[storyquestv1.GenerateContentResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	result := s.uc.GenerateContent(ctx, a, taskID)
	metrics.GenerationRuns.WithLabelValues(generationOutcome(result)).Inc()
	metrics.CreditsCharged.Add(float64(result.CreditsCharged))
	resp := connect.NewResponse(&storyquestv1.GenerateContentResponse{
		Success:        result.Success,
		CreditsCharged: result.CreditsCharged,
	})
	if result.Err != nil {
		resp.Msg.Error = result.Err.Error()
		if _, reason := mapping.Classify(result.Err); reason != "" {
			resp.Header().Set(mapping.ErrorReasonHeader, reason)
		}
	}
	return resp, nil
}

func (s *TaskServiceServer) ListTasks(ctx context.Context, req *connect.Request[storyquestv1.ListTasksRequest]) (*connect.Response[storyquestv1.ListTasksResponse], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	query := &repository.ListTaskQuery{
		Pagination: convertPagination(req.Msg.Pagination),
		FilterOrder: repository.FilterOrder{
			Filter:  req.Msg.Filter,
			OrderBy: req.Msg.OrderBy,
		},
	}
	tasks, total, err := s.uc.ListTasks(ctx, a, query)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&storyquestv1.ListTasksResponse{
		Tasks: lo.Map(tasks, func(t entity.Task, _ int) storyquestv1.Task { return mapping.ToPbTask(&t) }),
		Pagination: storyquestv1.PaginationResponse{
			Total:    total,
			PageNo:   query.PageNo,
			PageSize: query.PageSize,
		},
	}), nil
}

func (s *TaskServiceServer) GetTask(ctx context.Context, req *connect.Request[storyquestv1.TaskIDRequest]) (*connect.Response[storyquestv1.TaskDetail], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	detail, err := s.uc.GetTaskDetail(ctx, a, taskID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbTaskDetail(detail))), nil
}

func (s *TaskServiceServer) CompleteTask(ctx context.Context, req *connect.Request[storyquestv1.TaskIDRequest]) (*connect.Response[storyquestv1.Task], error) {
	a, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(req.Msg.TaskID)
	if err != nil {
		return nil, err
	}
	task, err := s.uc.CompleteTask(ctx, a, taskID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(lo.ToPtr(mapping.ToPbTask(task))), nil
}

func generationOutcome(r usecase.GenerateResult) string {
	if r.Success {
		return "success"
	}
	if _, reason := mapping.Classify(r.Err); reason != "" {
		return strings.ToLower(reason)
	}
	return "failed"
}
