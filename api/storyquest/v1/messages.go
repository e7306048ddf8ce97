// Package storyquestv1 holds the wire messages of the storyquest.v1 Connect
// services. Field names follow protojson's lowerCamelCase convention.
package storyquestv1

const (
	TaskServiceName      = "storyquest.v1.TaskService"
	ChallengeServiceName = "storyquest.v1.ChallengeService"
)

const (
	TaskServiceCreateTaskProcedure       = "/storyquest.v1.TaskService/CreateTask"
	TaskServiceRecognizeWordsProcedure   = "/storyquest.v1.TaskService/RecognizeWords"
	TaskServiceRecognizePreviewProcedure = "/storyquest.v1.TaskService/RecognizePreview"
	TaskServiceConfirmWordsProcedure     = "/storyquest.v1.TaskService/ConfirmWords"
	TaskServiceUpdateGroupsProcedure     = "/storyquest.v1.TaskService/UpdateGroups"
	TaskServiceGenerateContentProcedure  = "/storyquest.v1.TaskService/GenerateContent"
	TaskServiceListTasksProcedure        = "/storyquest.v1.TaskService/ListTasks"
	TaskServiceGetTaskProcedure          = "/storyquest.v1.TaskService/GetTask"
	TaskServiceCompleteTaskProcedure     = "/storyquest.v1.TaskService/CompleteTask"
)

const (
	ChallengeServiceSubmitAttemptProcedure    = "/storyquest.v1.ChallengeService/SubmitAttempt"
	ChallengeServiceEvaluateSpeechProcedure   = "/storyquest.v1.ChallengeService/EvaluateSpeech"
	ChallengeServiceGetGroupProgressProcedure = "/storyquest.v1.ChallengeService/GetGroupProgress"
	ChallengeServiceGetTaskProgressProcedure  = "/storyquest.v1.ChallengeService/GetTaskProgress"
)

type Pagination struct {
	PageNo   int32 `json:"pageNo,omitempty"`
	PageSize int32 `json:"pageSize,omitempty"`
}

type PaginationResponse struct {
	Total    int64 `json:"total"`
	PageNo   int32 `json:"pageNo"`
	PageSize int32 `json:"pageSize"`
}

type RecognizedWord struct {
	Word         string   `json:"word"`
	Meaning      string   `json:"meaning,omitempty"`
	PartOfSpeech string   `json:"partOfSpeech,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

type Word struct {
	Word         string `json:"word"`
	Meaning      string `json:"meaning"`
	PartOfSpeech string `json:"partOfSpeech"`
}

type WordGroup struct {
	GroupIndex int    `json:"groupIndex"`
	Words      []Word `json:"words"`
}

type Task struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Grade           string           `json:"grade"`
	Status          string           `json:"status"`
	ImageURLs       []string         `json:"imageUrls"`
	RecognizedWords []RecognizedWord `json:"recognizedWords"`
	ConfirmedWords  []Word           `json:"confirmedWords"`
	WordGroups      []WordGroup      `json:"wordGroups"`
	CreditsUsed     int              `json:"creditsUsed"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

type Story struct {
	ID               string           `json:"id"`
	GroupIndex       int              `json:"groupIndex"`
	Words            []string         `json:"words"`
	Content          string           `json:"content"`
	ContentZh        string           `json:"contentZh,omitempty"`
	HighlightedWords map[string][]int `json:"highlightedWords,omitempty"`
	CreatedAt        string           `json:"createdAt"`
}

type ChoiceOption struct {
	Text      string `json:"text"`
	TextZh    string `json:"textZh,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

type CardContent struct {
	Instruction        string         `json:"instruction"`
	InstructionZh      string         `json:"instructionZh,omitempty"`
	ReadingText        string         `json:"readingText,omitempty"`
	ReadingHint        string         `json:"readingHint,omitempty"`
	Keywords           []string       `json:"keywords,omitempty"`
	Question           string         `json:"question,omitempty"`
	QuestionZh         string         `json:"questionZh,omitempty"`
	Options            []ChoiceOption `json:"options,omitempty"`
	CorrectOptionIndex *int           `json:"correctOptionIndex,omitempty"`
	ImageURL           string         `json:"imageUrl,omitempty"`
	StoryContext       string         `json:"storyContext,omitempty"`
}

type ChallengeCard struct {
	ID         string      `json:"id"`
	StoryID    string      `json:"storyId"`
	GroupIndex int         `json:"groupIndex"`
	CardIndex  int         `json:"cardIndex"`
	CardType   string      `json:"cardType"`
	SubType    string      `json:"subType"`
	TargetWord string      `json:"targetWord"`
	Content    CardContent `json:"content"`
}

type ChallengeResponse struct {
	Type                string   `json:"type"`
	SpokenText          string   `json:"spokenText,omitempty"`
	MatchedKeywords     []string `json:"matchedKeywords,omitempty"`
	MatchPercentage     *float64 `json:"matchPercentage,omitempty"`
	SelectedOptionIndex *int     `json:"selectedOptionIndex,omitempty"`
	AudioBase64         string   `json:"audioBase64,omitempty"`
}

type ChallengeAttempt struct {
	ID            string            `json:"id"`
	CardID        string            `json:"cardId"`
	Passed        bool              `json:"passed"`
	Score         int               `json:"score"`
	AttemptNumber int               `json:"attemptNumber"`
	Response      ChallengeResponse `json:"response"`
	CreatedAt     string            `json:"createdAt"`
}

type CardProgress struct {
	Card          ChallengeCard `json:"card"`
	TotalAttempts int           `json:"totalAttempts"`
	Passed        bool          `json:"passed"`
	BestScore     int           `json:"bestScore"`
}

type GroupProgress struct {
	GroupIndex  int            `json:"groupIndex"`
	Cards       []CardProgress `json:"cards"`
	TotalCards  int            `json:"totalCards"`
	PassedCards int            `json:"passedCards"`
	AllPassed   bool           `json:"allPassed"`
	Percentage  int            `json:"percentage"`
	Stars       int            `json:"stars"`
}

type TaskProgress struct {
	TaskID      string          `json:"taskId"`
	Groups      []GroupProgress `json:"groups"`
	TotalCards  int             `json:"totalCards"`
	PassedCards int             `json:"passedCards"`
	AllPassed   bool            `json:"allPassed"`
}

type CreateTaskRequest struct {
	Title string `json:"title"`
	Grade string `json:"grade"`
}

type RecognizeWordsRequest struct {
	TaskID    string   `json:"taskId"`
	Text      string   `json:"text,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

type RecognizeWordsResponse struct {
	Words []RecognizedWord `json:"words"`
}

type RecognizePreviewRequest struct {
	ImageURL string `json:"imageUrl"`
}

type ConfirmWordsRequest struct {
	TaskID string `json:"taskId"`
	Words  []Word `json:"words"`
}

type WordGroupsResponse struct {
	Groups []WordGroup `json:"groups"`
}

type UpdateGroupsRequest struct {
	TaskID string      `json:"taskId"`
	Groups []WordGroup `json:"groups"`
}

type TaskIDRequest struct {
	TaskID string `json:"taskId"`
}

type GenerateContentResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	CreditsCharged int    `json:"creditsCharged"`
}

type ListTasksRequest struct {
	Pagination *Pagination `json:"pagination,omitempty"`
	Filter     string      `json:"filter,omitempty"`
	OrderBy    string      `json:"orderBy,omitempty"`
}

type ListTasksResponse struct {
	Tasks      []Task             `json:"tasks"`
	Pagination PaginationResponse `json:"pagination"`
}

type TaskDetail struct {
	Task     Task               `json:"task"`
	Stories  []Story            `json:"stories"`
	Cards    []ChallengeCard    `json:"cards"`
	Attempts []ChallengeAttempt `json:"attempts"`
}

type SubmitAttemptRequest struct {
	TaskID   string            `json:"taskId"`
	CardID   string            `json:"cardId"`
	Response ChallengeResponse `json:"response"`
}

type SpeechScore struct {
	Text       string  `json:"text"`
	TotalScore float64 `json:"totalScore"`
}

type SubmitAttemptResponse struct {
	Attempt         ChallengeAttempt `json:"attempt"`
	Passed          bool             `json:"passed"`
	Score           int              `json:"score"`
	AttemptNumber   int              `json:"attemptNumber"`
	Hint            string           `json:"hint,omitempty"`
	ShouldDowngrade bool             `json:"shouldDowngrade"`
	Speech          *SpeechScore     `json:"speech,omitempty"`
}

type EvaluateSpeechRequest struct {
	AudioBase64 string `json:"audioBase64"`
	Text        string `json:"text"`
	CoreType    string `json:"coreType,omitempty"`
}

type GroupProgressRequest struct {
	TaskID     string `json:"taskId"`
	GroupIndex int    `json:"groupIndex"`
}
