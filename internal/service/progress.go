package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// ErrProgressNotSaved indicates the completion was kept locally but the backend did not store it.
var ErrProgressNotSaved = errors.New("progress could not be saved")

// ProgressPercentage is 100 * |completed ∩ lessons| / |lessons|, or 0 without lessons.
func ProgressPercentage(lessonIDs []uint, completed models.Completion) float64 {
	if len(lessonIDs) == 0 {
		return 0
	}
	done := 0
	seen := make(map[uint]struct{}, len(lessonIDs))
	for _, id := range lessonIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if completed.Has(id) {
			done++
		}
	}
	return float64(done) / float64(len(seen)) * 100
}

// ProgressTracker hydrates and synchronises lesson completion with the backend.
type ProgressTracker interface {
	Hydrate(ctx context.Context, session learnapi.Session, course models.Course) models.Completion
	Sync(ctx context.Context, session learnapi.Session, lessonID uint) error
}

type progressTracker struct {
	backend ProgressBackend
	logger  zerolog.Logger
}

// NewProgressTracker constructs a ProgressTracker.
func NewProgressTracker(backend ProgressBackend, logger zerolog.Logger) ProgressTracker {
	return &progressTracker{
		backend: backend,
		logger:  logger.With().Str("component", "progress_tracker").Logger(),
	}
}

// Hydrate returns the server-side completion records for lessons of the course.
// Without a session or on any failure the set is empty.
func (t *progressTracker) Hydrate(ctx context.Context, session learnapi.Session, course models.Course) models.Completion {
	completion := models.NewCompletion()
	if !session.Authenticated() {
		return completion
	}

	records, err := t.backend.GetCourseProgress(ctx, session, course.ID)
	if err != nil {
		if !learnapi.IsAbsent(err) {
			t.logger.Warn().Err(err).Uint("course_id", course.ID).Msg("progress hydration failed")
		}
		return completion
	}

	for _, record := range records {
		if record.Completed {
			completion.Add(record.LessonID)
		}
	}
	return completion
}

// Sync tells the backend the lesson is complete. The caller keeps its local mark regardless.
func (t *progressTracker) Sync(ctx context.Context, session learnapi.Session, lessonID uint) error {
	if !session.Authenticated() {
		return ErrProgressNotSaved
	}
	if err := t.backend.CompleteLesson(ctx, session, lessonID); err != nil {
		observability.ProgressSyncFailures().Inc()
		t.logger.Warn().Err(err).Uint("lesson_id", lessonID).Msg("lesson completion not synchronised")
		return errors.Join(ErrProgressNotSaved, err)
	}
	return nil
}
