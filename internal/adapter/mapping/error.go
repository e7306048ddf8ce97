package mapping

import (
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eslsoft/storyquest/internal/entity"
)

// ErrorReasonHeader carries a stable machine-readable reason next to the code,
// so clients can tell insufficient credits apart from other precondition failures.
const ErrorReasonHeader = "Storyquest-Error-Reason"

type errorClass struct {
	err    error
	code   codes.Code
	reason string
}

var errorClasses = []errorClass{
	{entity.ErrInvalidTaskTitle, codes.InvalidArgument, "INVALID_TITLE"},
	{entity.ErrInvalidGrade, codes.InvalidArgument, "INVALID_GRADE"},
	{entity.ErrNoWordsProvided, codes.InvalidArgument, "NO_WORDS"},
	{entity.ErrNoConfirmedWords, codes.InvalidArgument, "NO_CONFIRMED_WORDS"},
	{entity.ErrNoWordGroups, codes.InvalidArgument, "NO_WORD_GROUPS"},
	{entity.ErrInvalidWordGroups, codes.InvalidArgument, "INVALID_WORD_GROUPS"},
	{entity.ErrInvalidPartOfSpeech, codes.InvalidArgument, "INVALID_PART_OF_SPEECH"},
	{entity.ErrInvalidResponse, codes.InvalidArgument, "INVALID_RESPONSE"},
	{entity.ErrInvalidGroupIndex, codes.InvalidArgument, "INVALID_GROUP_INDEX"},
	{entity.ErrInvalidFilter, codes.InvalidArgument, "INVALID_FILTER"},
	{entity.ErrTaskNotFound, codes.NotFound, "TASK_NOT_FOUND"},
	{entity.ErrCardNotFound, codes.NotFound, "CARD_NOT_FOUND"},
	{entity.ErrUserNotFound, codes.NotFound, "USER_NOT_FOUND"},
	{entity.ErrInvalidTaskStatus, codes.FailedPrecondition, "INVALID_TASK_STATUS"},
	{entity.ErrInsufficientCredits, codes.FailedPrecondition, "INSUFFICIENT_CREDITS"},
	{entity.ErrGenerationInProgress, codes.Aborted, "GENERATION_IN_PROGRESS"},
	{entity.ErrDuplicateRecord, codes.AlreadyExists, "DUPLICATE"},
	{entity.ErrUnauthenticated, codes.Unauthenticated, "UNAUTHENTICATED"},
	{entity.ErrSpeechEvaluation, codes.Unavailable, "SPEECH_EVALUATION_FAILED"},
	{entity.ErrGenerationFailed, codes.Internal, "GENERATION_FAILED"},
}

// Classify returns the status code and reason for a domain error.
func Classify(err error) (codes.Code, string) {
	if err == nil {
		return codes.OK, ""
	}
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.code, c.reason
		}
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return codes.Code(connectErr.Code()), ""
	}
	if s, ok := status.FromError(err); ok {
		return s.Code(), ""
	}
	return codes.Internal, "INTERNAL"
}

func ToConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	code, reason := Classify(err)
	out := connect.NewError(connect.Code(code), err)
	if reason != "" {
		out.Meta().Set(ErrorReasonHeader, reason)
	}
	return out
}

func ToPbError(err error) error {
	if err == nil {
		return nil
	}
	code, _ := Classify(err)
	return status.Error(code, err.Error())
}
