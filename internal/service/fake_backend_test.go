package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

var errBackendDown = errors.New("backend unavailable")

func notFound(path string) error {
	return &learnapi.APIError{StatusCode: http.StatusNotFound, Path: path, Message: "not found"}
}

// fakeBackend is an in-memory learning backend. Every *Err map forces a failure
// for the keyed id.
type fakeBackend struct {
	mu sync.Mutex

	course        models.Course
	courseErr     error
	modules       []models.Module
	modulesErr    error
	moduleDetails map[uint]models.Module
	moduleErr     map[uint]error
	assignments   map[uint][]models.Assignment
	assignmentErr map[uint]error
	quizzes       map[uint][]models.Quiz
	quizErr       map[uint]error

	progress    []models.LessonProgress
	progressErr error
	completeErr error
	completed   []uint

	submissions   map[uint]models.Submission
	submissionErr error
	submitErr     error
	uploads       []learnapi.SubmissionUpload
	uploadedData  []string
	file          learnapi.File

	attempts   map[uint]models.QuizAttempt
	attemptErr error
	answerErr  error

	categories []models.Category
	editorErr  error
	nextID     uint
	inputs     []interface{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		moduleDetails: map[uint]models.Module{},
		moduleErr:     map[uint]error{},
		assignments:   map[uint][]models.Assignment{},
		assignmentErr: map[uint]error{},
		quizzes:       map[uint][]models.Quiz{},
		quizErr:       map[uint]error{},
		submissions:   map[uint]models.Submission{},
		attempts:      map[uint]models.QuizAttempt{},
		nextID:        1000,
	}
}

// sampleBackend serves a course with two modules and four lessons. Lesson 11
// has assignment 100, lesson 21 has quizzes 201 to 203 and lesson 22 has quiz 221.
func sampleBackend() *fakeBackend {
	deadline := time.Now().Add(48 * time.Hour)
	backend := newFakeBackend()
	backend.course = models.Course{ID: 1, Title: "Go Basics", Instructor: "Rina"}
	backend.modules = []models.Module{
		{ID: 1, Title: "Intro"},
		{ID: 2, Title: "Types"},
	}
	backend.moduleDetails[1] = models.Module{ID: 1, Title: "Intro", Lessons: []models.Lesson{
		{ID: 11, Title: "Welcome", ContentType: "video"},
		{ID: 12, Title: "Setup", ContentType: "text", ContentText: `<p>Install Go</p><script>alert(1)</script>`},
	}}
	backend.moduleDetails[2] = models.Module{ID: 2, Title: "Types", Lessons: []models.Lesson{
		{ID: 21, Title: "Numbers", ContentType: "quiz"},
		{ID: 22, Title: "Strings", ContentType: "assignment"},
	}}
	backend.assignments[11] = []models.Assignment{{ID: 100, LessonID: 11, Title: "Hello world", MaxPoints: 100, Deadline: &deadline}}
	backend.quizzes[21] = []models.Quiz{
		{ID: 201, LessonID: 21, Question: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1, Points: 10},
		{ID: 202, LessonID: 21, Question: "int size?", Options: []string{"arch", "8"}, CorrectOption: 0, Points: 10},
		{ID: 203, LessonID: 21, Question: "zero value?", Options: []string{"0", "nil"}, CorrectOption: 0, Points: 10},
	}
	backend.quizzes[22] = []models.Quiz{
		{ID: 221, LessonID: 22, Question: "len(\"go\")?", Options: []string{"1", "2"}, CorrectOption: 1, Points: 5},
	}
	return backend
}

func (f *fakeBackend) GetCourse(_ context.Context, _ learnapi.Session, courseID uint) (models.Course, error) {
	if f.courseErr != nil {
		return models.Course{}, f.courseErr
	}
	if f.course.ID != courseID {
		return models.Course{}, notFound("/courses")
	}
	return f.course, nil
}

func (f *fakeBackend) ListCourseModules(_ context.Context, _ learnapi.Session, _ uint) ([]models.Module, error) {
	if f.modulesErr != nil {
		return nil, f.modulesErr
	}
	return f.modules, nil
}

func (f *fakeBackend) GetModule(_ context.Context, _ learnapi.Session, moduleID uint) (models.Module, error) {
	if err := f.moduleErr[moduleID]; err != nil {
		return models.Module{}, err
	}
	module, ok := f.moduleDetails[moduleID]
	if !ok {
		return models.Module{}, notFound("/modules")
	}
	return module, nil
}

func (f *fakeBackend) ListLessonAssignments(_ context.Context, _ learnapi.Session, lessonID uint) ([]models.Assignment, error) {
	if err := f.assignmentErr[lessonID]; err != nil {
		return nil, err
	}
	return f.assignments[lessonID], nil
}

func (f *fakeBackend) ListLessonQuizzes(_ context.Context, _ learnapi.Session, lessonID uint) ([]models.Quiz, error) {
	if err := f.quizErr[lessonID]; err != nil {
		return nil, err
	}
	return f.quizzes[lessonID], nil
}

func (f *fakeBackend) GetCourseProgress(_ context.Context, _ learnapi.Session, _ uint) ([]models.LessonProgress, error) {
	return f.progress, f.progressErr
}

func (f *fakeBackend) CompleteLesson(_ context.Context, _ learnapi.Session, lessonID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, lessonID)
	return nil
}

func (f *fakeBackend) GetMySubmission(_ context.Context, _ learnapi.Session, assignmentID uint) (models.Submission, error) {
	if f.submissionErr != nil {
		return models.Submission{}, f.submissionErr
	}
	submission, ok := f.submissions[assignmentID]
	if !ok {
		return models.Submission{}, notFound("/submissions/my")
	}
	return submission, nil
}

func (f *fakeBackend) SubmitAssignment(_ context.Context, _ learnapi.Session, assignmentID uint, upload learnapi.SubmissionUpload) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return models.Submission{}, f.submitErr
	}
	data := ""
	if upload.File != nil {
		raw, err := io.ReadAll(upload.File)
		if err != nil {
			return models.Submission{}, err
		}
		data = string(raw)
	}
	f.uploads = append(f.uploads, upload)
	f.uploadedData = append(f.uploadedData, data)

	existing, ok := f.submissions[assignmentID]
	if !ok {
		f.nextID++
		existing.ID = f.nextID
	}
	existing.AssignmentID = assignmentID
	existing.Content = upload.Content
	existing.FileName = upload.FileName
	existing.SubmittedAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.submissions[assignmentID] = existing
	return existing, nil
}

func (f *fakeBackend) DownloadSubmission(_ context.Context, _ learnapi.Session, _ uint) (learnapi.File, error) {
	return f.file, nil
}

func (f *fakeBackend) GetQuizAttempt(_ context.Context, _ learnapi.Session, quizID uint) (models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attemptErr != nil {
		return models.QuizAttempt{}, f.attemptErr
	}
	attempt, ok := f.attempts[quizID]
	if !ok {
		return models.QuizAttempt{}, notFound("/quiz-attempts")
	}
	return attempt, nil
}

func (f *fakeBackend) CreateQuizAttempt(_ context.Context, _ learnapi.Session, quizID uint, selectedOption int) (models.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answerErr != nil {
		return models.QuizAttempt{}, f.answerErr
	}
	correct := false
	for _, quizzes := range f.quizzes {
		for _, quiz := range quizzes {
			if quiz.ID == quizID {
				correct = quiz.CorrectOption == selectedOption
			}
		}
	}
	f.nextID++
	attempt := models.QuizAttempt{ID: f.nextID, QuizID: quizID, SelectedOption: selectedOption, IsCorrect: correct}
	f.attempts[quizID] = attempt
	return attempt, nil
}

func (f *fakeBackend) record(input interface{}) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) CreateModule(_ context.Context, _ learnapi.Session, input learnapi.ModuleInput) (models.Module, error) {
	if f.editorErr != nil {
		return models.Module{}, f.editorErr
	}
	return models.Module{ID: f.record(input), Title: input.Title, Description: input.Description}, nil
}

func (f *fakeBackend) CreateLesson(_ context.Context, _ learnapi.Session, input learnapi.LessonInput) (models.Lesson, error) {
	if f.editorErr != nil {
		return models.Lesson{}, f.editorErr
	}
	return models.Lesson{ID: f.record(input), Title: input.Title, ContentType: models.ContentType(input.ContentType), Duration: input.Duration}, nil
}

func (f *fakeBackend) CreateAssignment(_ context.Context, _ learnapi.Session, input learnapi.AssignmentInput) (models.Assignment, error) {
	if f.editorErr != nil {
		return models.Assignment{}, f.editorErr
	}
	return models.Assignment{ID: f.record(input), Title: input.Title, MaxPoints: input.MaxPoints, Deadline: input.Deadline}, nil
}

func (f *fakeBackend) CreateQuiz(_ context.Context, _ learnapi.Session, input learnapi.QuizInput) (models.Quiz, error) {
	if f.editorErr != nil {
		return models.Quiz{}, f.editorErr
	}
	return models.Quiz{ID: f.record(input), Question: input.Question, Options: input.Options, CorrectOption: input.CorrectOption, Points: input.Points}, nil
}

func (f *fakeBackend) UpdateCourse(_ context.Context, _ learnapi.Session, courseID uint, input learnapi.CourseInput) (models.Course, error) {
	if f.editorErr != nil {
		return models.Course{}, f.editorErr
	}
	f.record(input)
	return models.Course{ID: courseID, Title: input.Title, Description: input.Description, CategoryID: input.CategoryID}, nil
}

func (f *fakeBackend) ListCategories(_ context.Context, _ learnapi.Session) ([]models.Category, error) {
	if f.editorErr != nil {
		return nil, f.editorErr
	}
	return f.categories, nil
}

var _ Backend = (*fakeBackend)(nil)
