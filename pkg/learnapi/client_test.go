package learnapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/"}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "  "}, zerolog.Nop())
	require.Error(t, err)
}

func TestClientAttachesBearerTokenAndUnwrapsEnvelope(t *testing.T) {
	var authHeader string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.Equal(t, "/courses/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":3,"title":"Go 101"}}`))
	})

	course, err := client.GetCourse(context.Background(), Session{Token: "abc"}, 3)
	require.NoError(t, err)
	require.Equal(t, "Bearer abc", authHeader)
	require.Equal(t, uint(3), course.ID)
	require.Equal(t, "Go 101", course.Title)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var authHeader string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"id":1,"title":"Intro"}]`))
	})

	modules, err := client.ListCourseModules(context.Background(), Session{}, 9)
	require.NoError(t, err)
	require.Empty(t, authHeader)
	require.Len(t, modules, 1)
	require.Equal(t, "Intro", modules[0].Title)
}

func TestClientForwardsCorrelationAndObservesCalls(t *testing.T) {
	var correlation string
	var observed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlation = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(Config{
		BaseURL:       server.URL,
		CorrelationID: func(context.Context) string { return "corr-1" },
		Observe: func(endpoint string, status int, _ time.Duration) {
			observed = append(observed, endpoint)
			require.Equal(t, http.StatusNoContent, status)
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, client.CompleteLesson(context.Background(), Session{Token: "t"}, 5))
	require.Equal(t, "corr-1", correlation)
	require.Equal(t, []string{"POST /lessons/{id}/complete"}, observed)
}

func TestClientMapsErrorResponses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/my") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no submission"}`))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"title is required"}`))
	})

	_, err := client.GetMySubmission(context.Background(), Session{Token: "t"}, 4)
	require.Error(t, err)
	require.True(t, IsNotFound(err))

	_, err = client.CreateModule(context.Background(), Session{Token: "t"}, ModuleInput{CourseID: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "title is required", apiErr.Message)
	require.False(t, IsNotFound(err))
}

func TestClientTreatsEmptyPayloadAsAbsent(t *testing.T) {
	for name, body := range map[string]string{
		"null data":  `{"success":true,"data":null}`,
		"empty body": "",
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			})
			ctx := context.Background()
			session := Session{Token: "t"}

			_, err := client.GetQuizAttempt(ctx, session, 4)
			require.True(t, errors.Is(err, ErrNoContent))
			require.True(t, IsAbsent(err))
			require.False(t, IsNotFound(err))

			_, err = client.GetMySubmission(ctx, session, 7)
			require.ErrorIs(t, err, ErrNoContent)
			require.True(t, IsAbsent(err))

			quizzes, err := client.ListLessonQuizzes(ctx, session, 2)
			require.NoError(t, err)
			require.Empty(t, quizzes)

			records, err := client.GetCourseProgress(ctx, session, 1)
			require.NoError(t, err)
			require.Empty(t, records)
		})
	}
}

func TestSubmitAssignmentSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "my answer", r.FormValue("content"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "report.pdf", header.Filename)
		require.Equal(t, "pdf-bytes", string(data))
		_, _ = w.Write([]byte(`{"assignment_id":8,"content":"my answer","file_name":"report.pdf","submitted_at":"2026-01-02T03:04:05Z"}`))
	})

	submission, err := client.SubmitAssignment(context.Background(), Session{Token: "t"}, 8, SubmissionUpload{
		Content:  "my answer",
		FileName: "report.pdf",
		File:     strings.NewReader("pdf-bytes"),
	})
	require.NoError(t, err)
	require.Equal(t, uint(8), submission.AssignmentID)
	require.Equal(t, "report.pdf", submission.FileName)
	require.False(t, submission.IsGraded())
}

func TestDownloadSubmissionReadsDisposition(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="essay.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	file, err := client.DownloadSubmission(context.Background(), Session{Token: "t"}, 2)
	require.NoError(t, err)
	require.Equal(t, "essay.pdf", file.Name)
	require.Equal(t, "application/pdf", file.ContentType)
	require.Equal(t, "%PDF-1.4", string(file.Data))
}

func TestCreateQuizAttemptReturnsServerCorrectness(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"quiz_id":11,"selected_option":2}`, string(body))
		_, _ = w.Write([]byte(`{"id":1,"selected_option":2,"is_correct":true}`))
	})

	attempt, err := client.CreateQuizAttempt(context.Background(), Session{Token: "t"}, 11, 2)
	require.NoError(t, err)
	require.Equal(t, uint(11), attempt.QuizID)
	require.True(t, attempt.IsCorrect)
}
