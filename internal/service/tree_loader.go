package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// ErrCourseLoadFailed indicates the course tree could not be assembled.
var ErrCourseLoadFailed = errors.New("course could not be loaded")

const defaultLoaderConcurrency = 8

// TreeLoader assembles the full course tree for a view.
type TreeLoader interface {
	Load(ctx context.Context, session learnapi.Session, courseID uint) (models.Course, error)
}

type treeLoader struct {
	backend     ContentBackend
	concurrency int
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewTreeLoader constructs a loader that fans out module and lesson fetches.
func NewTreeLoader(backend ContentBackend, concurrency int, logger zerolog.Logger) TreeLoader {
	if concurrency <= 0 {
		concurrency = defaultLoaderConcurrency
	}
	return &treeLoader{
		backend:     backend,
		concurrency: concurrency,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "tree_loader").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/tree"),
	}
}

func (l *treeLoader) Load(ctx context.Context, session learnapi.Session, courseID uint) (models.Course, error) {
	ctx, span := l.tracer.Start(ctx, "tree.load")
	defer span.End()
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))

	course, err := l.backend.GetCourse(ctx, session, courseID)
	if err != nil {
		return models.Course{}, l.fail(span, courseID, "course", err)
	}

	summaries, err := l.backend.ListCourseModules(ctx, session, courseID)
	if err != nil {
		return models.Course{}, l.fail(span, courseID, "modules", err)
	}

	modules := make([]models.Module, len(summaries))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.concurrency)

	for i, summary := range summaries {
		group.Go(func() error {
			detail, err := l.backend.GetModule(groupCtx, session, summary.ID)
			if err != nil {
				return fmt.Errorf("module %d: %w", summary.ID, err)
			}
			module := mergeModule(summary, detail)
			module.Lessons = l.enrichLessons(groupCtx, session, module.Lessons)
			modules[i] = module
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return models.Course{}, l.fail(span, courseID, "module detail", err)
	}

	if course.ID == 0 {
		course.ID = courseID
	}
	course.Modules = modules
	span.SetAttributes(
		attribute.Int("course.modules", len(modules)),
		attribute.Int("course.lessons", len(course.LessonIDs())),
	)

	return course, nil
}

// enrichLessons attaches assignments and quizzes to every lesson. A failed
// sub-fetch degrades that lesson's list to empty and never aborts the load.
func (l *treeLoader) enrichLessons(ctx context.Context, session learnapi.Session, lessons []models.Lesson) []models.Lesson {
	enriched := make([]models.Lesson, len(lessons))
	var group errgroup.Group
	group.SetLimit(l.concurrency)

	for i, lesson := range lessons {
		lesson = lesson.Normalize()
		// Rich text lessons are rendered as HTML by the player.
		if lesson.ContentText != "" {
			lesson.ContentText = l.sanitizer.Sanitize(lesson.ContentText)
		}
		lesson.Assignments = []models.Assignment{}
		lesson.Quizzes = []models.Quiz{}
		enriched[i] = lesson

		group.Go(func() error {
			assignments, err := l.backend.ListLessonAssignments(ctx, session, lesson.ID)
			if err != nil {
				l.enrichmentFailed("assignments", lesson.ID, err)
				return nil
			}
			if assignments != nil {
				enriched[i].Assignments = assignments
			}
			return nil
		})

		group.Go(func() error {
			quizzes, err := l.backend.ListLessonQuizzes(ctx, session, lesson.ID)
			if err != nil {
				l.enrichmentFailed("quizzes", lesson.ID, err)
				return nil
			}
			if quizzes != nil {
				enriched[i].Quizzes = quizzes
			}
			return nil
		})
	}

	_ = group.Wait()
	return enriched
}

func (l *treeLoader) enrichmentFailed(kind string, lessonID uint, err error) {
	observability.EnrichmentFailures().WithLabelValues(kind).Inc()
	l.logger.Warn().Err(err).Str("kind", kind).Uint("lesson_id", lessonID).Msg("lesson enrichment failed")
}

func (l *treeLoader) fail(span trace.Span, courseID uint, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" fetch failed")
	l.logger.Error().Err(err).Uint("course_id", courseID).Str("stage", stage).Msg("course load failed")
	return fmt.Errorf("%w: %w", ErrCourseLoadFailed, err)
}

func mergeModule(summary, detail models.Module) models.Module {
	module := detail
	if module.ID == 0 {
		module.ID = summary.ID
	}
	if module.Title == "" {
		module.Title = summary.Title
	}
	if module.Description == "" {
		module.Description = summary.Description
	}
	if module.CourseID == 0 {
		module.CourseID = summary.CourseID
	}
	if module.Lessons == nil {
		module.Lessons = []models.Lesson{}
	}
	return module
}
