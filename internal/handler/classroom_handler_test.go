package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/router"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// learningBackend fakes the upstream JSON API for one course with a video
// lesson carrying assignment 100 and a quiz lesson carrying quiz 201.
type learningBackend struct {
	mu          sync.Mutex
	completed   []string
	submitted   map[string]string
	failModules bool
}

func (b *learningBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	route := r.Method + " " + r.URL.Path
	switch {
	case route == "GET /courses/1":
		writeEnvelope(w, map[string]interface{}{"id": 1, "title": "Go Basics", "instructor_name": "Rina"})
	case route == "GET /modules/course/1":
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 1, "title": "Intro"}})
	case route == "GET /modules/1":
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 1, "title": "Intro", "lessons": []map[string]interface{}{
			{"id": 11, "title": "Welcome", "content_type": "video"},
			{"id": 12, "title": "Check", "content_type": "quiz"},
		}})
	case route == "GET /assignments/lesson/11":
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 100, "lesson_id": 11, "title": "Hello", "max_points": 100}})
	case route == "GET /quizzes/lesson/12":
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 201, "question": "2+2?", "options": []string{"3", "4"}, "correct_option": 1, "points": 10}})
	case strings.HasPrefix(route, "GET /assignments/lesson/"), strings.HasPrefix(route, "GET /quizzes/lesson/"):
		writeJSON(w, http.StatusOK, []interface{}{})
	case route == "GET /lessons/course/1/progress":
		writeEnvelope(w, []map[string]interface{}{{"lesson_id": 11, "completed": true}})
	case strings.HasPrefix(route, "POST /lessons/") && strings.HasSuffix(route, "/complete"):
		b.completed = append(b.completed, r.URL.Path)
		writeEnvelope(w, nil)
	case route == "GET /submissions/assignment/100/my":
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "submission not found"})
	case route == "POST /submissions/assignment/100":
		b.handleSubmit(w, r)
	case route == "GET /submissions/assignment/100/download":
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="answer.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7\n"))
	case route == "GET /quizzes/201/attempt":
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no attempt"})
	case route == "POST /quiz-attempts":
		var body struct {
			QuizID         uint `json:"quiz_id"`
			SelectedOption int  `json:"selected_option"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeEnvelope(w, map[string]interface{}{"id": 9, "quiz_id": body.QuizID, "selected_option": body.SelectedOption, "is_correct": body.SelectedOption == 1})
	case route == "POST /modules":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "module title already used"})
	case route == "POST /lessons":
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 13, "title": "Loops", "content_type": "text"})
	case route == "GET /courses/categories/all":
		writeEnvelope(w, []map[string]interface{}{{"id": 1, "name": "Programming"}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown route " + route})
	}
}

func (b *learningBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	fileName := ""
	if file, header, err := r.FormFile("file"); err == nil {
		data, _ := io.ReadAll(file)
		_ = file.Close()
		fileName = header.Filename
		b.submitted[fileName] = string(data)
	}
	writeEnvelope(w, map[string]interface{}{
		"id":            1,
		"assignment_id": 100,
		"content":       r.FormValue("content"),
		"file_name":     fileName,
		"submitted_at":  "2026-05-01T09:00:00Z",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data, "message": "ok"})
}

type classroomApp struct {
	app     *fiber.App
	backend *learningBackend
	token   string
}

func setupClassroomApp(t *testing.T) *classroomApp {
	t.Helper()

	upstream := &learningBackend{submitted: map[string]string{}}
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	client, err := learnapi.New(learnapi.Config{BaseURL: server.URL, CorrelationID: middleware.CorrelationIDFromContext}, logger)
	require.NoError(t, err)

	editor := service.NewEditorService(client, validate, logger)
	views := service.NewViewService(service.ViewDependencies{
		Views:       repository.NewMemoryViewRepository(0),
		Loader:      service.NewTreeLoader(client, 4, logger),
		Progress:    service.NewProgressTracker(client, logger),
		Submissions: service.NewSubmissionService(client, 1, logger),
		Quizzes:     service.NewQuizService(client, 0, logger),
		Editor:      editor,
	}, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		ViewHandler:       handler.NewViewHandler(views, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(views, logger),
		QuizHandler:       handler.NewQuizHandler(views, validate, logger),
		EditorHandler:     handler.NewEditorHandler(views, editor, validate, logger),
		SessionMiddleware: middleware.Session(),
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "student-7"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	return &classroomApp{app: app, backend: upstream, token: token}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func (a *classroomApp) do(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	return a.send(t, req)
}

func (a *classroomApp) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var decoded envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func (a *classroomApp) openView(t *testing.T) string {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/v2/classroom/views", map[string]uint{"course_id": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestClassroomViewLifecycle(t *testing.T) {
	app := setupClassroomApp(t)
	viewID := app.openView(t)
	base := "/api/v2/classroom/views/" + viewID

	resp, body := app.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		CurrentLessonID uint `json:"current_lesson_id"`
		Progress        struct {
			CompletedLessonIDs []uint  `json:"completed_lesson_ids"`
			Percentage         float64 `json:"percentage"`
		} `json:"progress"`
		Course struct {
			Instructor string `json:"instructor_name"`
		} `json:"course"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	require.Equal(t, uint(11), view.CurrentLessonID)
	require.Equal(t, []uint{11}, view.Progress.CompletedLessonIDs)
	require.InDelta(t, 50, view.Progress.Percentage, 0.001)
	require.Equal(t, "Rina", view.Course.Instructor)

	resp, body = app.do(t, http.MethodGet, base+"/navigation?lesson_id=12", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"lesson_id":12,"previous_lesson_id":11,"next_lesson_id":null}`, string(body.Data))

	resp, body = app.do(t, http.MethodPost, base+"/lessons/12/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completion struct {
		Synced   bool `json:"synced"`
		Progress struct {
			Percentage float64 `json:"percentage"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &completion))
	require.True(t, completion.Synced)
	require.InDelta(t, 100, completion.Progress.Percentage, 0.001)
	require.Equal(t, []string{"/lessons/12/complete"}, app.backend.completed)

	resp, _ = app.do(t, http.MethodPut, base+"/current", map[string]uint{"lesson_id": 99})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClassroomOpenViewValidatesAndMapsUpstream(t *testing.T) {
	app := setupClassroomApp(t)

	resp, _ := app.do(t, http.MethodPost, "/api/v2/classroom/views", map[string]uint{"course_id": 0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := app.do(t, http.MethodPost, "/api/v2/classroom/views", map[string]uint{"course_id": 2})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "course not found", body.Message)
}

func TestClassroomRejectsMalformedToken(t *testing.T) {
	app := setupClassroomApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/classroom/editor/categories", nil)
	req.Header.Set("Authorization", "Bearer nope")

	resp, _ := app.send(t, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClassroomSubmissionFlow(t *testing.T) {
	app := setupClassroomApp(t)
	viewID := app.openView(t)
	base := fmt.Sprintf("/api/v2/classroom/views/%s/assignments/100", viewID)

	resp, body := app.do(t, http.MethodPost, base+"/dialog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dialog struct {
		State string `json:"state"`
		Form  struct {
			CanSubmit    bool  `json:"can_submit"`
			MaxFileBytes int64 `json:"max_file_bytes"`
		} `json:"form"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &dialog))
	require.Equal(t, "no_submission", dialog.State)
	require.True(t, dialog.Form.CanSubmit)
	require.Equal(t, int64(1<<20), dialog.Form.MaxFileBytes)

	payload := &bytes.Buffer{}
	writer := multipart.NewWriter(payload)
	require.NoError(t, writer.WriteField("content", "see attachment"))
	part, err := writer.CreateFormFile("file", "answer.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/submit", payload)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+app.token)
	resp, body = app.send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)
	require.NoError(t, json.Unmarshal(body.Data, &dialog))
	require.Equal(t, "submitted", dialog.State)
	require.Equal(t, "%PDF-1.7", app.backend.submitted["answer.pdf"])

	req = httptest.NewRequest(http.MethodGet, base+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+app.token)
	resp, err = app.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "answer.pdf")
}

func TestClassroomSubmissionRejectsEmptyAndDisallowedFiles(t *testing.T) {
	app := setupClassroomApp(t)
	viewID := app.openView(t)
	base := fmt.Sprintf("/api/v2/classroom/views/%s/assignments/100", viewID)

	resp, _ := app.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, base+"/dialog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := &bytes.Buffer{}
	writer := multipart.NewWriter(payload)
	part, err := writer.CreateFormFile("file", "tool.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/submit", payload)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+app.token)
	resp, body := app.send(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, service.ErrFileTypeNotAllowed.Error(), body.Message)
	require.Empty(t, app.backend.submitted)
}

func TestClassroomQuizFlow(t *testing.T) {
	app := setupClassroomApp(t)
	viewID := app.openView(t)
	base := fmt.Sprintf("/api/v2/classroom/views/%s/lessons/12/quiz", viewID)

	resp, body := app.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, string(body.Data), "correct_option")

	resp, _ = app.do(t, http.MethodPost, base+"/answer", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPut, base+"/choice", map[string]int{"option": 7})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPut, base+"/choice", map[string]int{"option": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = app.do(t, http.MethodPost, base+"/answer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var quiz struct {
		Phase string `json:"phase"`
		Score struct {
			Percentage int  `json:"percentage"`
			Passed     bool `json:"passed"`
		} `json:"score"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &quiz))
	require.Equal(t, "results", quiz.Phase)
	require.Equal(t, 100, quiz.Score.Percentage)
	require.True(t, quiz.Score.Passed)
}

func TestClassroomEditorEchoesFormOnUpstreamRejection(t *testing.T) {
	app := setupClassroomApp(t)
	viewID := app.openView(t)
	base := fmt.Sprintf("/api/v2/classroom/views/%s/editor", viewID)

	resp, body := app.do(t, http.MethodPost, base+"/modules", map[string]string{"title": "Intro", "description": "again"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "module title already used", body.Message)
	require.JSONEq(t, `{"title":"Intro","description":"again"}`, string(body.Details))

	resp, body = app.do(t, http.MethodPost, base+"/modules/1/lessons", map[string]string{"title": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, body.Details)

	resp, body = app.do(t, http.MethodPost, base+"/modules/1/lessons", map[string]interface{}{"title": "Loops", "content_type": "text"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	resp, body = app.do(t, http.MethodGet, "/api/v2/classroom/views/"+viewID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body.Data), `"Loops"`)

	resp, body = app.do(t, http.MethodGet, "/api/v2/classroom/editor/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[{"id":1,"name":"Programming"}]`, string(body.Data))
}

func TestHealthReportsMemoryStore(t *testing.T) {
	app := setupClassroomApp(t)

	resp, body := app.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body.Data), `"view_store":"memory"`)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))
}
