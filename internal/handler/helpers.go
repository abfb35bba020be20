package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + key + " id")
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func viewParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("view"))
	if id == "" {
		return "", errors.New("invalid view id")
	}
	return id, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

var (
	notFoundErrors = []error{
		service.ErrViewNotFound,
		service.ErrLessonNotFound,
		service.ErrModuleNotFound,
		service.ErrAssignmentNotFound,
		service.ErrNoSubmissionFile,
	}
	badRequestErrors = []error{
		service.ErrSubmissionEmpty,
		service.ErrFileTypeNotAllowed,
		service.ErrInvalidOption,
		service.ErrCorrectOptionOutOfRange,
	}
	conflictErrors = []error{
		service.ErrDialogNotOpen,
		service.ErrDeadlinePassed,
		service.ErrSubmissionInProgress,
		service.ErrQuizNotInProgress,
		service.ErrQuestionAnswered,
		service.ErrQuestionUnanswered,
		service.ErrNoPendingChoice,
		service.ErrFirstQuestion,
	}
)

func matchAny(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// respondError maps service and backend errors onto the response envelope.
// Backend failures surface as 502 with the backend's message; anything
// unrecognised is logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	var apiErr *learnapi.APIError

	if target, ok := matchAny(err, notFoundErrors); ok {
		return utils.SendError(c, fiber.StatusNotFound, target.Error())
	}
	if target, ok := matchAny(err, badRequestErrors); ok {
		return utils.SendError(c, fiber.StatusBadRequest, target.Error())
	}
	if target, ok := matchAny(err, conflictErrors); ok {
		return utils.SendError(c, fiber.StatusConflict, target.Error())
	}

	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, service.ErrFileTooLarge.Error())
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == fiber.StatusUnauthorized:
			return utils.SendError(c, fiber.StatusUnauthorized, "session expired, please sign in again")
		case apiErr.StatusCode == fiber.StatusNotFound && errors.Is(err, service.ErrCourseLoadFailed):
			return utils.SendError(c, fiber.StatusNotFound, "course not found")
		}
		requestLogger(logger, c).Warn().Err(err).Int("upstream_status", apiErr.StatusCode).Msg("learning backend request failed")
		return utils.SendError(c, fiber.StatusBadGateway, apiErr.Message)
	case errors.Is(err, service.ErrCourseLoadFailed):
		requestLogger(logger, c).Warn().Err(err).Msg("course load failed")
		return utils.SendError(c, fiber.StatusBadGateway, service.ErrCourseLoadFailed.Error())
	case errors.Is(err, learnapi.ErrNoContent):
		requestLogger(logger, c).Warn().Err(err).Msg("learning backend returned no content")
		return utils.SendError(c, fiber.StatusBadGateway, learnapi.ErrNoContent.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
