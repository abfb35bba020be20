package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// ViewHandler exposes the course player: views, navigation and progress.
type ViewHandler struct {
	service   service.ViewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewViewHandler builds a view handler instance.
func NewViewHandler(service service.ViewService, validator *validator.Validate, logger zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "view_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ViewHandler) Register(router fiber.Router) {
	router.Post("/views", h.open)
	router.Get("/views/:view", h.get)
	router.Delete("/views/:view", h.close)
	router.Put("/views/:view/current", h.setCurrent)
	router.Get("/views/:view/navigation", h.navigation)
	router.Post("/views/:view/lessons/:lesson/complete", h.markComplete)
	router.Delete("/views/:view/notices", h.dismissNotices)
}

func (h *ViewHandler) open(c *fiber.Ctx) error {
	var payload dto.OpenViewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.service.Open(c.UserContext(), middleware.SessionFromContext(c), payload.CourseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "view opened", view)
}

func (h *ViewHandler) get(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	view, err := h.service.Get(c.UserContext(), middleware.SessionFromContext(c), viewID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "view retrieved", view)
}

func (h *ViewHandler) close(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Close(c.UserContext(), middleware.SessionFromContext(c), viewID); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "view closed", nil)
}

func (h *ViewHandler) setCurrent(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SetCurrentLessonRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err)
	}

	view, err := h.service.SetCurrentLesson(c.UserContext(), middleware.SessionFromContext(c), viewID, payload.LessonID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "current lesson updated", view)
}

func (h *ViewHandler) navigation(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	lessonID, err := parseQueryUint(c, "lesson_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	nav, err := h.service.Navigation(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "navigation retrieved", nav)
}

func (h *ViewHandler) markComplete(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	lessonID, err := parseUintParam(c, "lesson")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.MarkComplete(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	message := "lesson completed"
	if !result.Synced {
		message = result.Notice
	}
	return utils.SendSuccess(c, message, result)
}

func (h *ViewHandler) dismissNotices(c *fiber.Ctx) error {
	viewID, err := viewParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DismissNotices(c.UserContext(), middleware.SessionFromContext(c), viewID); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notices dismissed", nil)
}
