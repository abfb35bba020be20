package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// QuizPassPercentage is the minimum score percentage that passes a quiz set.
const QuizPassPercentage = 70

// DefaultQuizAdvanceDelay is how long an answered question stays on screen before auto-advance.
const DefaultQuizAdvanceDelay = 1500 * time.Millisecond

var (
	// ErrQuizNotInProgress indicates the dialog is not accepting answers.
	ErrQuizNotInProgress = errors.New("quiz is not in progress")
	// ErrQuestionAnswered indicates the current question already has an attempt.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrQuestionUnanswered indicates forward navigation before answering.
	ErrQuestionUnanswered = errors.New("question has not been answered")
	// ErrNoPendingChoice indicates submit without a selected option.
	ErrNoPendingChoice = errors.New("no option selected")
	// ErrInvalidOption indicates an option index outside the quiz options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrFirstQuestion indicates previous navigation on the first question.
	ErrFirstQuestion = errors.New("already at the first question")
)

// QuizPhase is the quiz dialog phase.
type QuizPhase string

const (
	QuizLoading    QuizPhase = "loading"
	QuizInProgress QuizPhase = "in_progress"
	QuizResults    QuizPhase = "results"
)

// QuizDialog is the state of one lesson's quiz set.
type QuizDialog struct {
	LessonID  uint                        `json:"lesson_id"`
	Phase     QuizPhase                   `json:"phase"`
	Index     int                         `json:"index"`
	Quizzes   []models.Quiz               `json:"quizzes"`
	Attempts  map[uint]models.QuizAttempt `json:"attempts"`
	Pending   *int                        `json:"pending,omitempty"`
	AdvanceAt *time.Time                  `json:"advance_at,omitempty"`
	Banner    string                      `json:"banner,omitempty"`
}

func newQuizDialog(lesson models.Lesson) QuizDialog {
	quizzes := lesson.Quizzes
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	return QuizDialog{
		LessonID: lesson.ID,
		Phase:    QuizLoading,
		Quizzes:  quizzes,
		Attempts: map[uint]models.QuizAttempt{},
	}
}

func (d QuizDialog) current() (models.Quiz, bool) {
	if d.Index < 0 || d.Index >= len(d.Quizzes) {
		return models.Quiz{}, false
	}
	return d.Quizzes[d.Index], true
}

func (d QuizDialog) answered(quizID uint) bool {
	_, ok := d.Attempts[quizID]
	return ok
}

// AllAnswered reports whether every quiz in the set has an attempt.
func (d QuizDialog) AllAnswered() bool {
	for _, quiz := range d.Quizzes {
		if !d.answered(quiz.ID) {
			return false
		}
	}
	return true
}

func (d QuizDialog) firstUnanswered(from int) (int, bool) {
	for i := from; i < len(d.Quizzes); i++ {
		if !d.answered(d.Quizzes[i].ID) {
			return i, true
		}
	}
	return 0, false
}

// Resolve applies a due auto-advance.
func (d QuizDialog) Resolve(now time.Time) QuizDialog {
	if d.AdvanceAt == nil || now.Before(*d.AdvanceAt) {
		return d
	}
	d.AdvanceAt = nil
	return d.advance()
}

func (d QuizDialog) advance() QuizDialog {
	d.Pending = nil
	if next, ok := d.firstUnanswered(d.Index + 1); ok {
		d.Index = next
		return d
	}
	d.Phase = QuizResults
	return d
}

// Select changes the pending choice of the current unanswered question.
func (d QuizDialog) Select(option int) (QuizDialog, error) {
	if d.Phase != QuizInProgress {
		return d, ErrQuizNotInProgress
	}
	quiz, ok := d.current()
	if !ok {
		return d, ErrQuizNotInProgress
	}
	if d.answered(quiz.ID) {
		return d, ErrQuestionAnswered
	}
	if !quiz.ValidOption(option) {
		return d, ErrInvalidOption
	}
	d.Pending = &option
	return d, nil
}

// Previous moves back one question without touching any answer.
func (d QuizDialog) Previous() (QuizDialog, error) {
	if d.Phase != QuizInProgress {
		return d, ErrQuizNotInProgress
	}
	if d.Index == 0 {
		return d, ErrFirstQuestion
	}
	d.Index--
	d.Pending = nil
	d.AdvanceAt = nil
	return d, nil
}

// Next is the explicit "next question" / "view results" action.
func (d QuizDialog) Next() (QuizDialog, error) {
	if d.Phase != QuizInProgress {
		return d, ErrQuizNotInProgress
	}
	quiz, ok := d.current()
	if !ok || !d.answered(quiz.ID) {
		return d, ErrQuestionUnanswered
	}
	d.AdvanceAt = nil
	d.Pending = nil
	if d.Index+1 >= len(d.Quizzes) {
		d.Phase = QuizResults
		return d, nil
	}
	d.Index++
	return d, nil
}

// WithQuizzes swaps in the lesson's current question list, keeping answers.
// A finished set reopens at the first new question.
func (d QuizDialog) WithQuizzes(quizzes []models.Quiz) QuizDialog {
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	d.Quizzes = quizzes
	if d.Phase == QuizResults && !d.AllAnswered() {
		d.Phase = QuizInProgress
		d.Index, _ = d.firstUnanswered(0)
		d.Pending = nil
		d.AdvanceAt = nil
	}
	return d
}

// Reset clears local answers for a retake. No route exposes it.
func (d QuizDialog) Reset() QuizDialog {
	d.Attempts = map[uint]models.QuizAttempt{}
	d.Pending = nil
	d.AdvanceAt = nil
	d.Banner = ""
	d.Index = 0
	d.Phase = QuizInProgress
	return d
}

// QuizScore aggregates a quiz set.
type QuizScore struct {
	EarnedPoints int  `json:"earned_points"`
	TotalPoints  int  `json:"total_points"`
	Percentage   int  `json:"percentage"`
	Passed       bool `json:"passed"`
}

// ScoreQuizzes sums points of correctly answered quizzes. Percentage is floored.
func ScoreQuizzes(quizzes []models.Quiz, attempts map[uint]models.QuizAttempt) QuizScore {
	score := QuizScore{}
	for _, quiz := range quizzes {
		score.TotalPoints += quiz.Points
		if attempt, ok := attempts[quiz.ID]; ok && attempt.IsCorrect {
			score.EarnedPoints += quiz.Points
		}
	}
	if score.TotalPoints > 0 {
		score.Percentage = 100 * score.EarnedPoints / score.TotalPoints
	}
	score.Passed = score.Percentage >= QuizPassPercentage
	return score
}

// Option marks used in the result view.
const (
	OptionCorrect         = "correct"
	OptionChosenIncorrect = "chosen_incorrect"
	OptionNeutral         = "neutral"
)

// Response renders the dialog for the client. The correct option stays hidden
// until the question has an attempt.
func (d QuizDialog) Response() dto.QuizDialogResponse {
	response := dto.QuizDialogResponse{
		LessonID:  d.LessonID,
		Phase:     string(d.Phase),
		Index:     d.Index,
		Total:     len(d.Quizzes),
		Banner:    d.Banner,
		AdvanceAt: d.AdvanceAt,
	}

	if d.Phase == QuizInProgress {
		if quiz, ok := d.current(); ok {
			question := d.question(quiz)
			question.Pending = d.Pending
			response.Question = &question
			response.CanGoPrevious = d.Index > 0
			response.CanSubmit = d.Pending != nil && !d.answered(quiz.ID)
			response.CanGoNext = d.answered(quiz.ID)
			response.IsLastQuestion = d.Index == len(d.Quizzes)-1
		}
	}

	if d.Phase == QuizResults {
		score := ScoreQuizzes(d.Quizzes, d.Attempts)
		response.Score = &dto.QuizScoreResponse{
			EarnedPoints: score.EarnedPoints,
			TotalPoints:  score.TotalPoints,
			Percentage:   score.Percentage,
			Passed:       score.Passed,
		}
		response.Results = make([]dto.QuizQuestionResponse, 0, len(d.Quizzes))
		for _, quiz := range d.Quizzes {
			response.Results = append(response.Results, d.question(quiz))
		}
	}

	return response
}

func (d QuizDialog) question(quiz models.Quiz) dto.QuizQuestionResponse {
	question := dto.QuizQuestionResponse{
		QuizID:   quiz.ID,
		Question: quiz.Question,
		Options:  quiz.Options,
		Points:   quiz.Points,
	}
	attempt, ok := d.Attempts[quiz.ID]
	if !ok {
		return question
	}

	selected := attempt.SelectedOption
	correct := quiz.CorrectOption
	isCorrect := attempt.IsCorrect
	question.Answered = true
	question.Selected = &selected
	question.CorrectOption = &correct
	question.IsCorrect = &isCorrect
	if isCorrect {
		question.Awarded = quiz.Points
	}
	question.OptionMarks = make([]string, len(quiz.Options))
	for i := range quiz.Options {
		switch {
		case i == correct:
			question.OptionMarks[i] = OptionCorrect
		case i == selected && !isCorrect:
			question.OptionMarks[i] = OptionChosenIncorrect
		default:
			question.OptionMarks[i] = OptionNeutral
		}
	}
	return question
}

// QuizService loads attempts and posts answers for quiz dialogs.
type QuizService interface {
	Open(ctx context.Context, session learnapi.Session, lesson models.Lesson) QuizDialog
	SubmitAnswer(ctx context.Context, session learnapi.Session, dialog QuizDialog) (QuizDialog, error)
	Now() time.Time
}

type quizService struct {
	backend      QuizBackend
	advanceDelay time.Duration
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewQuizService constructs a QuizService.
func NewQuizService(backend QuizBackend, advanceDelay time.Duration, logger zerolog.Logger) QuizService {
	if advanceDelay < 0 {
		advanceDelay = DefaultQuizAdvanceDelay
	}
	return &quizService{
		backend:      backend,
		advanceDelay: advanceDelay,
		logger:       logger.With().Str("component", "quiz_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/quiz"),
		now:          time.Now,
	}
}

func (s *quizService) Now() time.Time {
	return s.now()
}

func (s *quizService) Open(ctx context.Context, session learnapi.Session, lesson models.Lesson) QuizDialog {
	dialog := newQuizDialog(lesson)

	if session.Authenticated() && len(dialog.Quizzes) > 0 {
		found := make([]*models.QuizAttempt, len(dialog.Quizzes))
		var group errgroup.Group
		for i, quiz := range dialog.Quizzes {
			group.Go(func() error {
				attempt, err := s.backend.GetQuizAttempt(ctx, session, quiz.ID)
				if err != nil {
					if !learnapi.IsAbsent(err) {
						s.logger.Warn().Err(err).Uint("quiz_id", quiz.ID).Msg("failed to load quiz attempt")
					}
					return nil
				}
				if attempt.QuizID == 0 {
					attempt.QuizID = quiz.ID
				}
				found[i] = &attempt
				return nil
			})
		}
		_ = group.Wait()

		for _, attempt := range found {
			if attempt != nil {
				dialog.Attempts[attempt.QuizID] = *attempt
			}
		}
	}

	if dialog.AllAnswered() {
		dialog.Phase = QuizResults
		return dialog
	}

	dialog.Phase = QuizInProgress
	dialog.Index, _ = dialog.firstUnanswered(0)
	return dialog
}

func (s *quizService) SubmitAnswer(ctx context.Context, session learnapi.Session, dialog QuizDialog) (QuizDialog, error) {
	dialog = dialog.Resolve(s.now())
	if dialog.Phase != QuizInProgress {
		return dialog, ErrQuizNotInProgress
	}
	quiz, ok := dialog.current()
	if !ok {
		return dialog, ErrQuizNotInProgress
	}
	if dialog.answered(quiz.ID) {
		return dialog, ErrQuestionAnswered
	}
	if dialog.Pending == nil {
		return dialog, ErrNoPendingChoice
	}

	ctx, span := s.tracer.Start(ctx, "quiz.answer")
	defer span.End()
	span.SetAttributes(attribute.Int64("quiz.id", int64(quiz.ID)), attribute.Int("quiz.option", *dialog.Pending))

	attempt, err := s.backend.CreateQuizAttempt(ctx, session, quiz.ID, *dialog.Pending)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt failed")
		s.logger.Warn().Err(err).Uint("quiz_id", quiz.ID).Msg("quiz attempt failed")
		dialog.Banner = bannerMessage(err, "answer could not be submitted")
		return dialog, err
	}
	if attempt.QuizID == 0 {
		attempt.QuizID = quiz.ID
	}

	attempts := make(map[uint]models.QuizAttempt, len(dialog.Attempts)+1)
	for id, existing := range dialog.Attempts {
		attempts[id] = existing
	}
	attempts[quiz.ID] = attempt
	dialog.Attempts = attempts
	dialog.Pending = nil
	dialog.Banner = ""

	if s.advanceDelay == 0 {
		return dialog.advance(), nil
	}
	advanceAt := s.now().Add(s.advanceDelay)
	dialog.AdvanceAt = &advanceAt
	return dialog, nil
}
