package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// OpenViewRequest opens a course view.
type OpenViewRequest struct {
	CourseID uint `json:"course_id" validate:"required,gt=0"`
}

// SetCurrentLessonRequest moves the view's lesson pointer.
type SetCurrentLessonRequest struct {
	LessonID uint `json:"lesson_id" validate:"required,gt=0"`
}

// ProgressResponse reports lesson completion for a view.
type ProgressResponse struct {
	CompletedLessonIDs []uint  `json:"completed_lesson_ids"`
	TotalLessons       int     `json:"total_lessons"`
	Percentage         float64 `json:"percentage"`
}

// NavigationResponse reports the neighbours of a lesson in document order.
type NavigationResponse struct {
	LessonID         uint  `json:"lesson_id"`
	PreviousLessonID *uint `json:"previous_lesson_id"`
	NextLessonID     *uint `json:"next_lesson_id"`
}

// ViewResponse is the full snapshot of a course view.
type ViewResponse struct {
	ID              string                      `json:"id"`
	Course          models.Course               `json:"course"`
	CurrentLessonID *uint                       `json:"current_lesson_id"`
	Navigation      *NavigationResponse         `json:"navigation,omitempty"`
	Progress        ProgressResponse            `json:"progress"`
	Submissions     map[uint]models.Submission  `json:"submissions"`
	Attempts        map[uint]models.QuizAttempt `json:"attempts"`
	Notices         []string                    `json:"notices"`
	OpenedAt        time.Time                   `json:"opened_at"`
}

// MarkCompleteResponse is returned after a lesson is marked complete.
type MarkCompleteResponse struct {
	Progress ProgressResponse `json:"progress"`
	Synced   bool             `json:"synced"`
	Notice   string           `json:"notice,omitempty"`
}
