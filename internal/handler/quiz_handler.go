package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// QuizHandler drives the quiz dialog of a lesson.
type QuizHandler struct {
	service   service.ViewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuizHandler builds a quiz handler instance.
func NewQuizHandler(service service.ViewService, validator *validator.Validate, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. answerLimit
// guards answer submission and may be nil.
func (h *QuizHandler) Register(router fiber.Router, answerLimit fiber.Handler) {
	if answerLimit == nil {
		answerLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	quiz := router.Group("/views/:view/lessons/:lesson/quiz")
	quiz.Post("", h.action("quiz opened", h.service.OpenQuiz))
	quiz.Get("", h.action("quiz retrieved", h.service.Quiz))
	quiz.Put("/choice", h.choose)
	quiz.Post("/answer", answerLimit, h.action("answer submitted", h.service.SubmitAnswer))
	quiz.Post("/previous", h.action("moved to previous question", h.service.PreviousQuestion))
	quiz.Post("/next", h.action("moved forward", h.service.NextQuestion))
}

type quizAction func(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error)

func (h *QuizHandler) params(c *fiber.Ctx) (string, uint, error) {
	viewID, err := viewParam(c)
	if err != nil {
		return "", 0, err
	}
	lessonID, err := parseUintParam(c, "lesson")
	if err != nil {
		return "", 0, err
	}
	return viewID, lessonID, nil
}

func (h *QuizHandler) action(message string, run quizAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewID, lessonID, err := h.params(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		quiz, err := run(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID)
		if err != nil {
			return respondError(c, h.logger, err)
		}

		return utils.SendSuccess(c, message, quiz)
	}
}

func (h *QuizHandler) choose(c *fiber.Ctx) error {
	viewID, lessonID, err := h.params(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizChoiceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err)
	}

	quiz, err := h.service.SelectOption(c.UserContext(), middleware.SessionFromContext(c), viewID, lessonID, *payload.Option)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "option selected", quiz)
}
