package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

var (
	// ErrModuleNotFound indicates the module is not part of the view's course.
	ErrModuleNotFound = errors.New("module not found")
	// ErrLessonNotFound indicates the lesson is not part of the view's course.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrCorrectOptionOutOfRange indicates the correct option does not address an option.
	ErrCorrectOptionOutOfRange = errors.New("correct option must reference one of the options")
)

// EditorService implements the instructor create flows. Each flow validates the
// form, posts it, and merges the returned entity into the given tree.
type EditorService interface {
	CreateModule(ctx context.Context, session learnapi.Session, course models.Course, payload dto.ModuleCreateRequest) (models.Course, models.Module, error)
	CreateLesson(ctx context.Context, session learnapi.Session, course models.Course, moduleID uint, payload dto.LessonCreateRequest) (models.Course, models.Lesson, error)
	CreateAssignment(ctx context.Context, session learnapi.Session, course models.Course, lessonID uint, payload dto.AssignmentCreateRequest) (models.Course, models.Assignment, error)
	CreateQuiz(ctx context.Context, session learnapi.Session, course models.Course, lessonID uint, payload dto.QuizCreateRequest) (models.Course, models.Quiz, error)
	UpdateCourse(ctx context.Context, session learnapi.Session, course models.Course, payload dto.CourseUpdateRequest) (models.Course, error)
	Categories(ctx context.Context, session learnapi.Session) ([]models.Category, error)
}

type editorService struct {
	backend   EditorBackend
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEditorService constructs an EditorService.
func NewEditorService(backend EditorBackend, validate *validator.Validate, logger zerolog.Logger) EditorService {
	return &editorService{
		backend:   backend,
		validator: validate,
		logger:    logger.With().Str("component", "editor_service").Logger(),
	}
}

func (s *editorService) CreateModule(ctx context.Context, session learnapi.Session, course models.Course, payload dto.ModuleCreateRequest) (models.Course, models.Module, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return course, models.Module{}, err
	}

	module, err := s.backend.CreateModule(ctx, session, learnapi.ModuleInput{
		CourseID:    course.ID,
		Title:       payload.Title,
		Description: strings.TrimSpace(payload.Description),
	})
	if err != nil {
		return course, models.Module{}, err
	}

	if module.CourseID == 0 {
		module.CourseID = course.ID
	}
	module.Lessons = []models.Lesson{}

	s.logger.Info().Uint("course_id", course.ID).Uint("module_id", module.ID).Msg("module created")
	return course.WithModule(module), module, nil
}

func (s *editorService) CreateLesson(ctx context.Context, session learnapi.Session, course models.Course, moduleID uint, payload dto.LessonCreateRequest) (models.Course, models.Lesson, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	payload.ContentType = strings.ToLower(strings.TrimSpace(payload.ContentType))
	if err := s.validator.Struct(payload); err != nil {
		return course, models.Lesson{}, err
	}
	if !course.HasModule(moduleID) {
		return course, models.Lesson{}, ErrModuleNotFound
	}

	lesson, err := s.backend.CreateLesson(ctx, session, learnapi.LessonInput{
		ModuleID:    moduleID,
		Title:       payload.Title,
		ContentType: payload.ContentType,
		ContentURL:  strings.TrimSpace(payload.ContentURL),
		ContentText: payload.ContentText,
		Duration:    payload.Duration,
	})
	if err != nil {
		return course, models.Lesson{}, err
	}

	lesson.ModuleID = moduleID
	lesson = lesson.Normalize()
	lesson.Assignments = []models.Assignment{}
	lesson.Quizzes = []models.Quiz{}

	updated, _ := course.WithLesson(moduleID, lesson)
	s.logger.Info().Uint("module_id", moduleID).Uint("lesson_id", lesson.ID).Msg("lesson created")
	return updated, lesson, nil
}

func (s *editorService) CreateAssignment(ctx context.Context, session learnapi.Session, course models.Course, lessonID uint, payload dto.AssignmentCreateRequest) (models.Course, models.Assignment, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return course, models.Assignment{}, err
	}
	if _, _, ok := course.FindLesson(lessonID); !ok {
		return course, models.Assignment{}, ErrLessonNotFound
	}

	assignment, err := s.backend.CreateAssignment(ctx, session, learnapi.AssignmentInput{
		LessonID:    lessonID,
		Title:       payload.Title,
		Description: strings.TrimSpace(payload.Description),
		MaxPoints:   payload.MaxPoints,
		Deadline:    payload.Deadline,
	})
	if err != nil {
		return course, models.Assignment{}, err
	}
	assignment.LessonID = lessonID

	updated, _ := course.WithAssignment(lessonID, assignment)
	s.logger.Info().Uint("lesson_id", lessonID).Uint("assignment_id", assignment.ID).Msg("assignment created")
	return updated, assignment, nil
}

func (s *editorService) CreateQuiz(ctx context.Context, session learnapi.Session, course models.Course, lessonID uint, payload dto.QuizCreateRequest) (models.Course, models.Quiz, error) {
	payload.Question = strings.TrimSpace(payload.Question)
	if err := s.validator.Struct(payload); err != nil {
		return course, models.Quiz{}, err
	}
	if *payload.CorrectOption >= len(payload.Options) {
		return course, models.Quiz{}, ErrCorrectOptionOutOfRange
	}
	if _, _, ok := course.FindLesson(lessonID); !ok {
		return course, models.Quiz{}, ErrLessonNotFound
	}

	quiz, err := s.backend.CreateQuiz(ctx, session, learnapi.QuizInput{
		LessonID:      lessonID,
		Question:      payload.Question,
		Options:       payload.Options,
		CorrectOption: *payload.CorrectOption,
		Points:        payload.Points,
	})
	if err != nil {
		return course, models.Quiz{}, err
	}
	quiz.LessonID = lessonID

	updated, _ := course.WithQuiz(lessonID, quiz)
	s.logger.Info().Uint("lesson_id", lessonID).Uint("quiz_id", quiz.ID).Msg("quiz created")
	return updated, quiz, nil
}

func (s *editorService) UpdateCourse(ctx context.Context, session learnapi.Session, course models.Course, payload dto.CourseUpdateRequest) (models.Course, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return course, err
	}

	saved, err := s.backend.UpdateCourse(ctx, session, course.ID, learnapi.CourseInput{
		Title:        payload.Title,
		Description:  strings.TrimSpace(payload.Description),
		CategoryID:   payload.CategoryID,
		ThumbnailURL: strings.TrimSpace(payload.ThumbnailURL),
	})
	if err != nil {
		return course, err
	}

	updated := course
	updated.Title = firstNonEmpty(saved.Title, payload.Title)
	updated.Description = firstNonEmpty(saved.Description, payload.Description)
	updated.ThumbnailURL = firstNonEmpty(saved.ThumbnailURL, payload.ThumbnailURL)
	if saved.Category != "" {
		updated.Category = saved.Category
	}
	if saved.CategoryID != nil {
		updated.CategoryID = saved.CategoryID
	} else if payload.CategoryID != nil {
		updated.CategoryID = payload.CategoryID
	}

	s.logger.Info().Uint("course_id", course.ID).Msg("course updated")
	return updated, nil
}

func (s *editorService) Categories(ctx context.Context, session learnapi.Session) ([]models.Category, error) {
	categories, err := s.backend.ListCategories(ctx, session)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
