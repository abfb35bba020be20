package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"mime/multipart"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

var (
	// ErrViewNotFound indicates the view is closed, expired or owned by another session.
	ErrViewNotFound = repository.ErrViewNotFound
	// ErrAssignmentNotFound indicates the assignment is not part of the view's course.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrDialogNotOpen indicates an action on a dialog that was never opened.
	ErrDialogNotOpen = errors.New("dialog is not open")
)

const (
	noticeProgressNotSaved = "progress could not be saved, it is kept for this view only"
	noticeSignInToSave     = "sign in to save your progress"
	maxNotices             = 10

	// viewLockStripes bounds the mutexes guarding views; ids sharing a stripe serialize.
	viewLockStripes = 64
)

// View is everything the player and editor hold for one opened course.
type View struct {
	ID                string                      `json:"id"`
	Owner             string                      `json:"owner"`
	Course            models.Course               `json:"course"`
	Completion        models.Completion           `json:"completion"`
	CurrentLessonID   *uint                       `json:"current_lesson_id,omitempty"`
	Submissions       map[uint]models.Submission  `json:"submissions"`
	Attempts          map[uint]models.QuizAttempt `json:"attempts"`
	SubmissionDialogs map[uint]SubmissionDialog   `json:"submission_dialogs"`
	QuizDialogs       map[uint]QuizDialog         `json:"quiz_dialogs"`
	Notices           []string                    `json:"notices"`
	OpenedAt          time.Time                   `json:"opened_at"`
}

func (v *View) ensureMaps() {
	if v.Completion == nil {
		v.Completion = models.NewCompletion()
	}
	if v.Submissions == nil {
		v.Submissions = map[uint]models.Submission{}
	}
	if v.Attempts == nil {
		v.Attempts = map[uint]models.QuizAttempt{}
	}
	if v.SubmissionDialogs == nil {
		v.SubmissionDialogs = map[uint]SubmissionDialog{}
	}
	if v.QuizDialogs == nil {
		v.QuizDialogs = map[uint]QuizDialog{}
	}
	if v.Notices == nil {
		v.Notices = []string{}
	}
}

func (v *View) notify(message string) {
	for _, existing := range v.Notices {
		if existing == message {
			return
		}
	}
	v.Notices = append(v.Notices, message)
	if len(v.Notices) > maxNotices {
		v.Notices = v.Notices[len(v.Notices)-maxNotices:]
	}
}

// Progress projects the completion percentage over the current tree.
func (v View) Progress() dto.ProgressResponse {
	lessonIDs := v.Course.LessonIDs()
	completed := make([]uint, 0, len(v.Completion))
	for _, id := range v.Completion.IDs() {
		if _, _, ok := v.Course.FindLesson(id); ok {
			completed = append(completed, id)
		}
	}
	return dto.ProgressResponse{
		CompletedLessonIDs: completed,
		TotalLessons:       len(lessonIDs),
		Percentage:         ProgressPercentage(lessonIDs, v.Completion),
	}
}

// Navigation reports neighbours of lessonID in document order.
func (v View) Navigation(lessonID uint) dto.NavigationResponse {
	nav := dto.NavigationResponse{LessonID: lessonID}
	if prev, ok := PreviousLesson(v.Course, lessonID); ok {
		id := prev.ID
		nav.PreviousLessonID = &id
	}
	if next, ok := NextLesson(v.Course, lessonID); ok {
		id := next.ID
		nav.NextLessonID = &id
	}
	return nav
}

// Response renders the view snapshot.
func (v View) Response() dto.ViewResponse {
	response := dto.ViewResponse{
		ID:              v.ID,
		Course:          v.Course,
		CurrentLessonID: v.CurrentLessonID,
		Progress:        v.Progress(),
		Submissions:     v.Submissions,
		Attempts:        v.Attempts,
		Notices:         v.Notices,
		OpenedAt:        v.OpenedAt,
	}
	if v.CurrentLessonID != nil {
		nav := v.Navigation(*v.CurrentLessonID)
		response.Navigation = &nav
	}
	return response
}

// ViewService binds the loader, tracker, navigator, dialogs and editor to stored views.
type ViewService interface {
	Open(ctx context.Context, session learnapi.Session, courseID uint) (dto.ViewResponse, error)
	Get(ctx context.Context, session learnapi.Session, viewID string) (dto.ViewResponse, error)
	Close(ctx context.Context, session learnapi.Session, viewID string) error
	SetCurrentLesson(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.ViewResponse, error)
	Navigation(ctx context.Context, session learnapi.Session, viewID string, lessonID *uint) (dto.NavigationResponse, error)
	MarkComplete(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.MarkCompleteResponse, error)
	DismissNotices(ctx context.Context, session learnapi.Session, viewID string) error

	OpenSubmissionDialog(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (dto.SubmissionDialogResponse, error)
	SubmissionDialog(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (dto.SubmissionDialogResponse, error)
	Submit(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint, text string, file *multipart.FileHeader) (dto.SubmissionDialogResponse, error)
	Download(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (Download, error)

	OpenQuiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)
	Quiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)
	SelectOption(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, option int) (dto.QuizDialogResponse, error)
	SubmitAnswer(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)
	PreviousQuestion(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)
	NextQuestion(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)

	CreateModule(ctx context.Context, session learnapi.Session, viewID string, payload dto.ModuleCreateRequest) (models.Module, error)
	CreateLesson(ctx context.Context, session learnapi.Session, viewID string, moduleID uint, payload dto.LessonCreateRequest) (models.Lesson, error)
	CreateAssignment(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, payload dto.AssignmentCreateRequest) (models.Assignment, error)
	CreateQuiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, payload dto.QuizCreateRequest) (models.Quiz, error)
	UpdateCourse(ctx context.Context, session learnapi.Session, viewID string, payload dto.CourseUpdateRequest) (models.Course, error)
}

// ViewDependencies groups the collaborators of the view service.
type ViewDependencies struct {
	Views       repository.ViewRepository
	Loader      TreeLoader
	Progress    ProgressTracker
	Submissions SubmissionService
	Quizzes     QuizService
	Editor      EditorService
}

type viewService struct {
	views       repository.ViewRepository
	loader      TreeLoader
	progress    ProgressTracker
	submissions SubmissionService
	quizzes     QuizService
	editor      EditorService
	locks       [viewLockStripes]sync.Mutex
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string
}

// NewViewService constructs the view service.
func NewViewService(deps ViewDependencies, logger zerolog.Logger) ViewService {
	return &viewService{
		views:       deps.Views,
		loader:      deps.Loader,
		progress:    deps.Progress,
		submissions: deps.Submissions,
		quizzes:     deps.Quizzes,
		editor:      deps.Editor,
		logger:      logger.With().Str("component", "view_service").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func viewLockStripe(viewID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(viewID))
	return int(h.Sum32() % viewLockStripes)
}

func (s *viewService) lock(viewID string) func() {
	mu := &s.locks[viewLockStripe(viewID)]
	mu.Lock()
	return mu.Unlock
}

func (s *viewService) load(ctx context.Context, session learnapi.Session, viewID string) (View, error) {
	payload, err := s.views.Get(ctx, viewID)
	if err != nil {
		return View{}, err
	}

	var view View
	if err := json.Unmarshal(payload, &view); err != nil {
		return View{}, fmt.Errorf("failed to decode view: %w", err)
	}
	if view.Owner != session.Subject {
		return View{}, ErrViewNotFound
	}
	view.ensureMaps()
	return view, nil
}

func (s *viewService) encode(view View) ([]byte, error) {
	payload, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view: %w", err)
	}
	return payload, nil
}

func (s *viewService) update(ctx context.Context, view View) error {
	payload, err := s.encode(view)
	if err != nil {
		return err
	}
	if err := s.views.Update(ctx, view.ID, payload); err != nil {
		if errors.Is(err, ErrViewNotFound) {
			s.logger.Debug().Str("view_id", view.ID).Msg("view closed before result arrived, discarding")
		}
		return err
	}
	return nil
}

// mutate runs fn on the locked view and stores the result even when fn fails,
// so banners and partial dialog state survive.
func (s *viewService) mutate(ctx context.Context, session learnapi.Session, viewID string, fn func(view *View) error) (View, error) {
	unlock := s.lock(viewID)
	defer unlock()

	view, err := s.load(ctx, session, viewID)
	if err != nil {
		return View{}, err
	}

	fnErr := fn(&view)
	if err := s.update(ctx, view); err != nil {
		return View{}, err
	}
	return view, fnErr
}

func (s *viewService) Open(ctx context.Context, session learnapi.Session, courseID uint) (dto.ViewResponse, error) {
	course, err := s.loader.Load(ctx, session, courseID)
	if err != nil {
		return dto.ViewResponse{}, err
	}

	view := View{
		ID:       s.newID(),
		Owner:    session.Subject,
		Course:   course,
		OpenedAt: s.now().UTC(),
	}
	view.ensureMaps()
	view.Completion = s.progress.Hydrate(ctx, session, course)
	if lessons := course.LessonIDs(); len(lessons) > 0 {
		first := lessons[0]
		view.CurrentLessonID = &first
	}

	payload, err := s.encode(view)
	if err != nil {
		return dto.ViewResponse{}, err
	}
	if err := s.views.Save(ctx, view.ID, payload); err != nil {
		return dto.ViewResponse{}, err
	}

	s.logger.Info().
		Str("view_id", view.ID).
		Uint("course_id", course.ID).
		Int("modules", len(course.Modules)).
		Msg("view opened")
	return view.Response(), nil
}

func (s *viewService) Get(ctx context.Context, session learnapi.Session, viewID string) (dto.ViewResponse, error) {
	view, err := s.load(ctx, session, viewID)
	if err != nil {
		return dto.ViewResponse{}, err
	}
	return view.Response(), nil
}

func (s *viewService) Close(ctx context.Context, session learnapi.Session, viewID string) error {
	if _, err := s.load(ctx, session, viewID); err != nil {
		return err
	}
	if err := s.views.Delete(ctx, viewID); err != nil {
		return err
	}
	s.logger.Info().Str("view_id", viewID).Msg("view closed")
	return nil
}

func (s *viewService) SetCurrentLesson(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.ViewResponse, error) {
	view, err := s.mutate(ctx, session, viewID, func(view *View) error {
		if _, _, ok := view.Course.FindLesson(lessonID); !ok {
			return ErrLessonNotFound
		}
		view.CurrentLessonID = &lessonID
		return nil
	})
	if err != nil {
		return dto.ViewResponse{}, err
	}
	return view.Response(), nil
}

func (s *viewService) Navigation(ctx context.Context, session learnapi.Session, viewID string, lessonID *uint) (dto.NavigationResponse, error) {
	view, err := s.load(ctx, session, viewID)
	if err != nil {
		return dto.NavigationResponse{}, err
	}
	target := lessonID
	if target == nil {
		target = view.CurrentLessonID
	}
	if target == nil {
		return dto.NavigationResponse{}, nil
	}
	return view.Navigation(*target), nil
}

// MarkComplete applies the mark locally first and keeps it even when the
// backend call fails; the user is told through a view notice instead.
func (s *viewService) MarkComplete(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.MarkCompleteResponse, error) {
	unlock := s.lock(viewID)
	defer unlock()

	view, err := s.load(ctx, session, viewID)
	if err != nil {
		return dto.MarkCompleteResponse{}, err
	}
	if _, _, ok := view.Course.FindLesson(lessonID); !ok {
		return dto.MarkCompleteResponse{}, ErrLessonNotFound
	}

	view.Completion.Add(lessonID)
	if err := s.update(ctx, view); err != nil {
		return dto.MarkCompleteResponse{}, err
	}

	response := dto.MarkCompleteResponse{Synced: true}
	if syncErr := s.progress.Sync(ctx, session, lessonID); syncErr != nil {
		response.Synced = false
		response.Notice = noticeProgressNotSaved
		if !session.Authenticated() {
			response.Notice = noticeSignInToSave
		}
		view.notify(response.Notice)
		if err := s.update(ctx, view); err != nil {
			return dto.MarkCompleteResponse{}, err
		}
	}

	response.Progress = view.Progress()
	return response, nil
}

func (s *viewService) DismissNotices(ctx context.Context, session learnapi.Session, viewID string) error {
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		view.Notices = []string{}
		return nil
	})
	return err
}
