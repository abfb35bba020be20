package models

import "time"

// Assignment represents a graded task attached to a lesson.
type Assignment struct {
	ID          uint       `json:"id"`
	LessonID    uint       `json:"lesson_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MaxPoints   int        `json:"max_points"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// AcceptsSubmissions reports whether a submission may still be sent at the reference time.
func (a Assignment) AcceptsSubmissions(reference time.Time) bool {
	if a.Deadline == nil {
		return true
	}
	return reference.Before(*a.Deadline)
}
