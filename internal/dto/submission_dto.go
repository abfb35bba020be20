package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// SubmissionFormResponse describes what the submission form accepts.
type SubmissionFormResponse struct {
	CanSubmit         bool       `json:"can_submit"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	MaxFileBytes      int64      `json:"max_file_bytes"`
	AllowedExtensions []string   `json:"allowed_extensions"`
}

// SubmissionDialogResponse is returned by the submission dialog endpoints.
type SubmissionDialogResponse struct {
	AssignmentID uint                   `json:"assignment_id"`
	LessonID     uint                   `json:"lesson_id"`
	Title        string                 `json:"title"`
	MaxPoints    int                    `json:"max_points"`
	State        string                 `json:"state"`
	Submission   *models.Submission     `json:"submission,omitempty"`
	Form         SubmissionFormResponse `json:"form"`
	Banner       string                 `json:"banner,omitempty"`
}
