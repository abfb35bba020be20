package dto

import "time"

// QuizChoiceRequest selects the pending option of the current question.
type QuizChoiceRequest struct {
	Option *int `json:"option" validate:"required,gte=0"`
}

// QuizQuestionResponse renders one question. CorrectOption, Selected and
// IsCorrect are only present once the question has an attempt.
type QuizQuestionResponse struct {
	QuizID        uint     `json:"quiz_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Points        int      `json:"points"`
	Answered      bool     `json:"answered"`
	Pending       *int     `json:"pending,omitempty"`
	Selected      *int     `json:"selected,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`
	IsCorrect     *bool    `json:"is_correct,omitempty"`
	Awarded       int      `json:"awarded"`
	OptionMarks   []string `json:"option_marks,omitempty"`
}

// QuizScoreResponse summarises a finished quiz set.
type QuizScoreResponse struct {
	EarnedPoints int  `json:"earned_points"`
	TotalPoints  int  `json:"total_points"`
	Percentage   int  `json:"percentage"`
	Passed       bool `json:"passed"`
}

// QuizDialogResponse is returned by every quiz dialog endpoint.
type QuizDialogResponse struct {
	LessonID       uint                   `json:"lesson_id"`
	Phase          string                 `json:"phase"`
	Index          int                    `json:"index"`
	Total          int                    `json:"total"`
	Question       *QuizQuestionResponse  `json:"question,omitempty"`
	CanGoPrevious  bool                   `json:"can_go_previous"`
	CanGoNext      bool                   `json:"can_go_next"`
	CanSubmit      bool                   `json:"can_submit"`
	IsLastQuestion bool                   `json:"is_last_question"`
	AdvanceAt      *time.Time             `json:"advance_at,omitempty"`
	Score          *QuizScoreResponse     `json:"score,omitempty"`
	Results        []QuizQuestionResponse `json:"results,omitempty"`
	Banner         string                 `json:"banner,omitempty"`
}
