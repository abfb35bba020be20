package service

import "github.com/noah-isme/gema-classroom/internal/models"

// NextLesson returns the lesson after currentID in document order
// (module order, then lesson order). ok is false for the last lesson or an
// id that is no longer part of the tree.
func NextLesson(course models.Course, currentID uint) (models.Lesson, bool) {
	lessons := course.Lessons()
	for i, lesson := range lessons {
		if lesson.ID == currentID {
			if i+1 < len(lessons) {
				return lessons[i+1], true
			}
			return models.Lesson{}, false
		}
	}
	return models.Lesson{}, false
}

// PreviousLesson returns the lesson before currentID in document order.
func PreviousLesson(course models.Course, currentID uint) (models.Lesson, bool) {
	lessons := course.Lessons()
	for i, lesson := range lessons {
		if lesson.ID == currentID {
			if i > 0 {
				return lessons[i-1], true
			}
			return models.Lesson{}, false
		}
	}
	return models.Lesson{}, false
}
