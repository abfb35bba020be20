package models

// Quiz is a single multiple-choice question. Options order is authoritative:
// CorrectOption indexes into Options as returned by the backend.
type Quiz struct {
	ID            uint     `json:"id"`
	LessonID      uint     `json:"lesson_id,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int      `json:"points"`
}

// ValidOption reports whether index addresses one of the quiz options.
func (q Quiz) ValidOption(index int) bool {
	return index >= 0 && index < len(q.Options)
}

// QuizAttempt is the backend-confirmed answer for a quiz.
type QuizAttempt struct {
	ID             uint `json:"id,omitempty"`
	QuizID         uint `json:"quiz_id"`
	SelectedOption int  `json:"selected_option"`
	IsCorrect      bool `json:"is_correct"`
}

// LessonProgress is a completion record reported by the backend.
type LessonProgress struct {
	LessonID  uint `json:"lesson_id"`
	Completed bool `json:"completed"`
}
