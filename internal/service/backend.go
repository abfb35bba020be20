package service

import (
	"context"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// ContentBackend reads the course tree from the learning backend.
type ContentBackend interface {
	GetCourse(ctx context.Context, session learnapi.Session, courseID uint) (models.Course, error)
	ListCourseModules(ctx context.Context, session learnapi.Session, courseID uint) ([]models.Module, error)
	GetModule(ctx context.Context, session learnapi.Session, moduleID uint) (models.Module, error)
	ListLessonAssignments(ctx context.Context, session learnapi.Session, lessonID uint) ([]models.Assignment, error)
	ListLessonQuizzes(ctx context.Context, session learnapi.Session, lessonID uint) ([]models.Quiz, error)
}

// ProgressBackend reads and writes lesson completion.
type ProgressBackend interface {
	GetCourseProgress(ctx context.Context, session learnapi.Session, courseID uint) ([]models.LessonProgress, error)
	CompleteLesson(ctx context.Context, session learnapi.Session, lessonID uint) error
}

// SubmissionBackend manages the caller's assignment submissions.
type SubmissionBackend interface {
	GetMySubmission(ctx context.Context, session learnapi.Session, assignmentID uint) (models.Submission, error)
	SubmitAssignment(ctx context.Context, session learnapi.Session, assignmentID uint, upload learnapi.SubmissionUpload) (models.Submission, error)
	DownloadSubmission(ctx context.Context, session learnapi.Session, assignmentID uint) (learnapi.File, error)
}

// QuizBackend manages quiz attempts.
type QuizBackend interface {
	GetQuizAttempt(ctx context.Context, session learnapi.Session, quizID uint) (models.QuizAttempt, error)
	CreateQuizAttempt(ctx context.Context, session learnapi.Session, quizID uint, selectedOption int) (models.QuizAttempt, error)
}

// EditorBackend creates course content.
type EditorBackend interface {
	CreateModule(ctx context.Context, session learnapi.Session, input learnapi.ModuleInput) (models.Module, error)
	CreateLesson(ctx context.Context, session learnapi.Session, input learnapi.LessonInput) (models.Lesson, error)
	CreateAssignment(ctx context.Context, session learnapi.Session, input learnapi.AssignmentInput) (models.Assignment, error)
	CreateQuiz(ctx context.Context, session learnapi.Session, input learnapi.QuizInput) (models.Quiz, error)
	UpdateCourse(ctx context.Context, session learnapi.Session, courseID uint, input learnapi.CourseInput) (models.Course, error)
	ListCategories(ctx context.Context, session learnapi.Session) ([]models.Category, error)
}

// Backend is everything the classroom services need from the learning API.
type Backend interface {
	ContentBackend
	ProgressBackend
	SubmissionBackend
	QuizBackend
	EditorBackend
}

var _ Backend = (*learnapi.Client)(nil)
