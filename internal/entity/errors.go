package entity

import "errors"

// Domain errors for tasks, generation and challenges.
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrCardNotFound         = errors.New("challenge card not found")
	ErrInvalidTaskTitle     = errors.New("invalid task title")
	ErrInvalidGrade         = errors.New("invalid grade")
	ErrInvalidTaskStatus    = errors.New("invalid task status transition")
	ErrNoWordsProvided      = errors.New("no words provided")
	ErrNoConfirmedWords     = errors.New("no confirmed words")
	ErrNoWordGroups         = errors.New("task has no word groups")
	ErrInvalidWordGroups    = errors.New("invalid word groups")
	ErrInvalidPartOfSpeech  = errors.New("invalid part of speech")
	ErrInvalidResponse      = errors.New("invalid challenge response")
	ErrInvalidGroupIndex    = errors.New("invalid group index")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrGenerationFailed     = errors.New("content generation failed")
	ErrGenerationInProgress = errors.New("content generation already in progress")
	ErrSpeechEvaluation     = errors.New("speech evaluation failed")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateRecord      = errors.New("record already exists")
	ErrInvalidFilter        = errors.New("invalid filter or order")
)
