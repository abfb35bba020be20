package learnapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// GetCourseProgress fetches the caller's lesson completion records for a course.
func (c *Client) GetCourseProgress(ctx context.Context, session Session, courseID uint) ([]models.LessonProgress, error) {
	var records []models.LessonProgress
	r := request{method: http.MethodGet, path: fmt.Sprintf("/lessons/course/%d/progress", courseID), endpoint: "GET /lessons/course/{id}/progress"}
	if err := c.doList(ctx, session, r, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CompleteLesson records the lesson as completed for the caller.
func (c *Client) CompleteLesson(ctx context.Context, session Session, lessonID uint) error {
	r := request{method: http.MethodPost, path: fmt.Sprintf("/lessons/%d/complete", lessonID), endpoint: "POST /lessons/{id}/complete"}
	return c.do(ctx, session, r, nil)
}

// GetMySubmission fetches the caller's submission for an assignment.
// A missing submission surfaces as a 404 APIError or ErrNoContent.
func (c *Client) GetMySubmission(ctx context.Context, session Session, assignmentID uint) (models.Submission, error) {
	var submission models.Submission
	r := request{method: http.MethodGet, path: fmt.Sprintf("/submissions/assignment/%d/my", assignmentID), endpoint: "GET /submissions/assignment/{id}/my"}
	if err := c.do(ctx, session, r, &submission); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// SubmissionUpload is the multipart body of a submission. Both parts are optional.
type SubmissionUpload struct {
	Content  string
	FileName string
	File     io.Reader
}

// SubmitAssignment creates or replaces the caller's submission.
func (c *Client) SubmitAssignment(ctx context.Context, session Session, assignmentID uint, upload SubmissionUpload) (models.Submission, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if upload.Content != "" {
		if err := writer.WriteField("content", upload.Content); err != nil {
			return models.Submission{}, fmt.Errorf("learnapi: write content: %w", err)
		}
	}
	if upload.File != nil {
		part, err := writer.CreateFormFile("file", upload.FileName)
		if err != nil {
			return models.Submission{}, fmt.Errorf("learnapi: create file part: %w", err)
		}
		if _, err := io.Copy(part, upload.File); err != nil {
			return models.Submission{}, fmt.Errorf("learnapi: copy file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return models.Submission{}, fmt.Errorf("learnapi: close multipart: %w", err)
	}

	r := request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/submissions/assignment/%d", assignmentID),
		endpoint:    "POST /submissions/assignment/{id}",
		body:        body,
		contentType: writer.FormDataContentType(),
	}

	var submission models.Submission
	if err := c.do(ctx, session, r, &submission); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// File is a downloaded submission attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// DownloadSubmission fetches the stored file of the caller's submission.
func (c *Client) DownloadSubmission(ctx context.Context, session Session, assignmentID uint) (File, error) {
	r := request{method: http.MethodGet, path: fmt.Sprintf("/submissions/assignment/%d/download", assignmentID), endpoint: "GET /submissions/assignment/{id}/download"}
	resp, err := c.send(ctx, session, r)
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return File{}, fmt.Errorf("learnapi: read download: %w", err)
	}

	file := File{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			file.Name = strings.TrimSpace(params["filename"])
		}
	}
	return file, nil
}

// GetQuizAttempt fetches the caller's attempt for a quiz. A missing attempt is a
// 404 APIError or ErrNoContent; see IsAbsent.
func (c *Client) GetQuizAttempt(ctx context.Context, session Session, quizID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	r := request{method: http.MethodGet, path: fmt.Sprintf("/quizzes/%d/attempt", quizID), endpoint: "GET /quizzes/{id}/attempt"}
	if err := c.do(ctx, session, r, &attempt); err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

// CreateQuizAttempt posts an answer; the backend decides correctness.
func (c *Client) CreateQuizAttempt(ctx context.Context, session Session, quizID uint, selectedOption int) (models.QuizAttempt, error) {
	payload := map[string]interface{}{
		"quiz_id":         quizID,
		"selected_option": selectedOption,
	}
	r, err := jsonRequest(http.MethodPost, "/quiz-attempts", "POST /quiz-attempts", payload)
	if err != nil {
		return models.QuizAttempt{}, err
	}

	var attempt models.QuizAttempt
	if err := c.do(ctx, session, r, &attempt); err != nil {
		return models.QuizAttempt{}, err
	}
	if attempt.QuizID == 0 {
		attempt.QuizID = quizID
	}
	return attempt, nil
}
