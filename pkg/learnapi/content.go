package learnapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// GetCourse fetches the course header (without modules).
func (c *Client) GetCourse(ctx context.Context, session Session, courseID uint) (models.Course, error) {
	var course models.Course
	r := request{method: http.MethodGet, path: fmt.Sprintf("/courses/%d", courseID), endpoint: "GET /courses/{id}"}
	if err := c.do(ctx, session, r, &course); err != nil {
		return models.Course{}, err
	}
	return course, nil
}

// ListCourseModules fetches the modules of a course in backend order.
func (c *Client) ListCourseModules(ctx context.Context, session Session, courseID uint) ([]models.Module, error) {
	var modules []models.Module
	r := request{method: http.MethodGet, path: fmt.Sprintf("/modules/course/%d", courseID), endpoint: "GET /modules/course/{id}"}
	if err := c.doList(ctx, session, r, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// GetModule fetches module detail including its lessons.
func (c *Client) GetModule(ctx context.Context, session Session, moduleID uint) (models.Module, error) {
	var module models.Module
	r := request{method: http.MethodGet, path: fmt.Sprintf("/modules/%d", moduleID), endpoint: "GET /modules/{id}"}
	if err := c.do(ctx, session, r, &module); err != nil {
		return models.Module{}, err
	}
	return module, nil
}

// ListLessonAssignments fetches assignments attached to a lesson.
func (c *Client) ListLessonAssignments(ctx context.Context, session Session, lessonID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	r := request{method: http.MethodGet, path: fmt.Sprintf("/assignments/lesson/%d", lessonID), endpoint: "GET /assignments/lesson/{id}"}
	if err := c.doList(ctx, session, r, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListLessonQuizzes fetches quizzes attached to a lesson.
func (c *Client) ListLessonQuizzes(ctx context.Context, session Session, lessonID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	r := request{method: http.MethodGet, path: fmt.Sprintf("/quizzes/lesson/%d", lessonID), endpoint: "GET /quizzes/lesson/{id}"}
	if err := c.doList(ctx, session, r, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// ListCategories fetches every course category.
func (c *Client) ListCategories(ctx context.Context, session Session) ([]models.Category, error) {
	var categories []models.Category
	r := request{method: http.MethodGet, path: "/courses/categories/all", endpoint: "GET /courses/categories/all"}
	if err := c.doList(ctx, session, r, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ModuleInput is the payload for creating a module.
type ModuleInput struct {
	CourseID    uint   `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LessonInput is the payload for creating a lesson.
type LessonInput struct {
	ModuleID    uint   `json:"module_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	ContentURL  string `json:"content_url,omitempty"`
	ContentText string `json:"content_text,omitempty"`
	Duration    int    `json:"duration"`
}

// AssignmentInput is the payload for creating an assignment.
type AssignmentInput struct {
	LessonID    uint       `json:"lesson_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MaxPoints   int        `json:"max_points"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// QuizInput is the payload for creating a quiz question.
type QuizInput struct {
	LessonID      uint     `json:"lesson_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int      `json:"points"`
}

// CourseInput is the payload for updating a course header.
type CourseInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	CategoryID   *uint  `json:"category_id,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CreateModule posts a new module.
func (c *Client) CreateModule(ctx context.Context, session Session, input ModuleInput) (models.Module, error) {
	var module models.Module
	r, err := jsonRequest(http.MethodPost, "/modules", "POST /modules", input)
	if err != nil {
		return models.Module{}, err
	}
	if err := c.do(ctx, session, r, &module); err != nil {
		return models.Module{}, err
	}
	return module, nil
}

// CreateLesson posts a new lesson.
func (c *Client) CreateLesson(ctx context.Context, session Session, input LessonInput) (models.Lesson, error) {
	var lesson models.Lesson
	r, err := jsonRequest(http.MethodPost, "/lessons", "POST /lessons", input)
	if err != nil {
		return models.Lesson{}, err
	}
	if err := c.do(ctx, session, r, &lesson); err != nil {
		return models.Lesson{}, err
	}
	return lesson, nil
}

// CreateAssignment posts a new assignment.
func (c *Client) CreateAssignment(ctx context.Context, session Session, input AssignmentInput) (models.Assignment, error) {
	var assignment models.Assignment
	r, err := jsonRequest(http.MethodPost, "/assignments", "POST /assignments", input)
	if err != nil {
		return models.Assignment{}, err
	}
	if err := c.do(ctx, session, r, &assignment); err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

// CreateQuiz posts a new quiz question.
func (c *Client) CreateQuiz(ctx context.Context, session Session, input QuizInput) (models.Quiz, error) {
	var quiz models.Quiz
	r, err := jsonRequest(http.MethodPost, "/quizzes", "POST /quizzes", input)
	if err != nil {
		return models.Quiz{}, err
	}
	if err := c.do(ctx, session, r, &quiz); err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

// UpdateCourse replaces the course header fields.
func (c *Client) UpdateCourse(ctx context.Context, session Session, courseID uint, input CourseInput) (models.Course, error) {
	var course models.Course
	r, err := jsonRequest(http.MethodPut, fmt.Sprintf("/courses/%d", courseID), "PUT /courses/{id}", input)
	if err != nil {
		return models.Course{}, err
	}
	if err := c.do(ctx, session, r, &course); err != nil {
		return models.Course{}, err
	}
	return course, nil
}
