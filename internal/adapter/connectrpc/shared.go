package connectrpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

const _maxPageSize = 100

func convertPagination(p *storyquestv1.Pagination) repository.Pagination {
	if p == nil {
		return repository.Pagination{PageNo: 1, PageSize: 20}
	}
	pageNo := p.PageNo
	if pageNo <= 0 {
		pageNo = 1
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > _maxPageSize {
		pageSize = _maxPageSize
	}
	return repository.Pagination{PageNo: pageNo, PageSize: pageSize}
}

func currentActor(ctx context.Context) (entity.Actor, error) {
	a, ok := actor.FromContext(ctx)
	if !ok {
		return entity.Actor{}, connect.NewError(connect.CodeUnauthenticated, entity.ErrUnauthenticated)
	}
	return a, nil
}

func requireTaskID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("task_id required"))
	}
	return id, nil
}

// ErrorInterceptor turns domain errors into connect errors at the edge.
func ErrorInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, mapping.ToConnectError(err)
			}
			return resp, nil
		}
	}
}

// route is a procedure path and its handler.
type route struct {
	procedure string
	handler   http.Handler
}

func serviceHandler(routes []route) http.Handler {
	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.procedure, r.handler)
	}
	return mux
}
