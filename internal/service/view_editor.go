package service

import (
	"context"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// Editor flows merge the created entity into the view's tree in place of a
// full reload; the view only changes when the backend accepted the form.

func (s *viewService) CreateModule(ctx context.Context, session learnapi.Session, viewID string, payload dto.ModuleCreateRequest) (models.Module, error) {
	var created models.Module
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		course, module, err := s.editor.CreateModule(ctx, session, view.Course, payload)
		if err != nil {
			return err
		}
		view.Course = course
		created = module
		return nil
	})
	return created, err
}

func (s *viewService) CreateLesson(ctx context.Context, session learnapi.Session, viewID string, moduleID uint, payload dto.LessonCreateRequest) (models.Lesson, error) {
	var created models.Lesson
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		course, lesson, err := s.editor.CreateLesson(ctx, session, view.Course, moduleID, payload)
		if err != nil {
			return err
		}
		view.Course = course
		if view.CurrentLessonID == nil {
			id := lesson.ID
			view.CurrentLessonID = &id
		}
		created = lesson
		return nil
	})
	return created, err
}

func (s *viewService) CreateAssignment(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, payload dto.AssignmentCreateRequest) (models.Assignment, error) {
	var created models.Assignment
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		course, assignment, err := s.editor.CreateAssignment(ctx, session, view.Course, lessonID, payload)
		if err != nil {
			return err
		}
		view.Course = course
		created = assignment
		return nil
	})
	return created, err
}

func (s *viewService) CreateQuiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, payload dto.QuizCreateRequest) (models.Quiz, error) {
	var created models.Quiz
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		course, quiz, err := s.editor.CreateQuiz(ctx, session, view.Course, lessonID, payload)
		if err != nil {
			return err
		}
		view.Course = course
		if dialog, ok := view.QuizDialogs[lessonID]; ok {
			lesson, _, _ := course.FindLesson(lessonID)
			view.QuizDialogs[lessonID] = dialog.WithQuizzes(lesson.Quizzes)
		}
		created = quiz
		return nil
	})
	return created, err
}

func (s *viewService) UpdateCourse(ctx context.Context, session learnapi.Session, viewID string, payload dto.CourseUpdateRequest) (models.Course, error) {
	var updated models.Course
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		course, err := s.editor.UpdateCourse(ctx, session, view.Course, payload)
		if err != nil {
			return err
		}
		view.Course = course
		updated = course
		return nil
	})
	return updated, err
}
