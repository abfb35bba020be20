package dto

import "time"

// ModuleCreateRequest is the editor form for a new module.
type ModuleCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// LessonCreateRequest is the editor form for a new lesson.
type LessonCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=video text quiz assignment other"`
	ContentURL  string `json:"content_url" validate:"omitempty,url"`
	ContentText string `json:"content_text"`
	Duration    int    `json:"duration" validate:"gte=0"`
}

// AssignmentCreateRequest is the editor form for a new assignment.
type AssignmentCreateRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description" validate:"required"`
	MaxPoints   int        `json:"max_points" validate:"required,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

// QuizCreateRequest is the editor form for a new quiz question.
type QuizCreateRequest struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOption *int     `json:"correct_option" validate:"required,gte=0"`
	Points        int      `json:"points" validate:"required,gt=0"`
}

// CourseUpdateRequest is the editor form for the course header.
type CourseUpdateRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=255"`
	Description  string `json:"description" validate:"required"`
	CategoryID   *uint  `json:"category_id" validate:"omitempty,gt=0"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
}
