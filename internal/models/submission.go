package models

import "time"

// Submission is the learner's single (upserted) answer to an assignment.
// Grade, Feedback and GradedAt are only ever written by the backend.
type Submission struct {
	ID           uint       `json:"id,omitempty"`
	AssignmentID uint       `json:"assignment_id"`
	Content      string     `json:"content,omitempty"`
	FileName     string     `json:"file_name,omitempty"`
	FileType     string     `json:"file_type,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
}

// IsGraded reports whether the backend has attached a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}

// HasFile reports whether the submission references an uploaded file.
func (s Submission) HasFile() bool {
	return s.FileName != ""
}
