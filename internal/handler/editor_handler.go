package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// EditorHandler exposes the instructor create flows for a view's course.
type EditorHandler struct {
	views     service.ViewService
	editor    service.EditorService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEditorHandler builds an editor handler instance.
func NewEditorHandler(views service.ViewService, editor service.EditorService, validator *validator.Validate, logger zerolog.Logger) *EditorHandler {
	return &EditorHandler{
		views:     views,
		editor:    editor,
		validator: validator,
		logger:    logger.With().Str("component", "editor_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EditorHandler) Register(router fiber.Router) {
	router.Get("/editor/categories", h.categories)

	editor := router.Group("/views/:view/editor")
	editor.Post("/modules", h.createModule)
	editor.Post("/modules/:module/lessons", h.createLesson)
	editor.Post("/lessons/:lesson/assignments", h.createAssignment)
	editor.Post("/lessons/:lesson/quizzes", h.createQuiz)
	editor.Put("/course", h.updateCourse)
}

func (h *EditorHandler) categories(c *fiber.Ctx) error {
	categories, err := h.editor.Categories(c.UserContext(), middleware.SessionFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "categories retrieved", categories)
}

func (h *EditorHandler) createModule(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ModuleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	module, err := h.views.CreateModule(c.UserContext(), middleware.SessionFromContext(c), viewID, payload)
	if err != nil {
		return h.handleError(c, err, payload)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *EditorHandler) createLesson(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	moduleID, err := parseUintParam(c, "module")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	lesson, err := h.views.CreateLesson(c.UserContext(), middleware.SessionFromContext(c), viewID, moduleID, payload)
	if err != nil {
		return h.handleError(c, err, payload)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lesson created", lesson)
}

func (h *EditorHandler) createAssignment(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	lessonID, err := parseUintParam(c, "lesson")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.views.CreateAssignment(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID, payload)
	if err != nil {
		return h.handleError(c, err, payload)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *EditorHandler) createQuiz(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	lessonID, err := parseUintParam(c, "lesson")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.views.CreateQuiz(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID, payload)
	if err != nil {
		return h.handleError(c, err, payload)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz created", quiz)
}

func (h *EditorHandler) updateCourse(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CourseUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.views.UpdateCourse(c.UserContext(), middleware.SessionFromContext(c), viewID, payload)
	if err != nil {
		return h.handleError(c, err, payload)
	}

	return utils.SendSuccess(c, "course updated", course)
}

// handleError echoes the submitted form on validation and upstream client
// errors so the editor can restore what the instructor typed.
func (h *EditorHandler) handleError(c *fiber.Ctx, err error, form interface{}) error {
	var apiErr *learnapi.APIError
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), form)
	case errors.Is(err, service.ErrCorrectOptionOutOfRange):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), form)
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != fiber.StatusUnauthorized:
		return utils.Fail(c, apiErr.StatusCode, apiErr.Message, form)
	case errors.As(err, &apiErr):
		requestLogger(h.logger, c).Warn().Err(err).Int("upstream_status", apiErr.StatusCode).Msg("editor request failed")
		if apiErr.StatusCode == fiber.StatusUnauthorized {
			return respondError(c, h.logger, err)
		}
		return utils.Fail(c, fiber.StatusBadGateway, apiErr.Message, form)
	default:
		return respondError(c, h.logger, err)
	}
}
