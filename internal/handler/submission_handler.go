package handler

import (
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// SubmissionHandler drives the assignment submission dialog of a view.
type SubmissionHandler struct {
	service service.ViewService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.ViewService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. submitLimit
// guards the upload endpoint and may be nil.
func (h *SubmissionHandler) Register(router fiber.Router, submitLimit fiber.Handler) {
	if submitLimit == nil {
		submitLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/views/:view/assignments/:assignment/dialog", h.open)
	router.Get("/views/:view/assignments/:assignment/dialog", h.get)
	router.Post("/views/:view/assignments/:assignment/submit", submitLimit, h.submit)
	router.Get("/views/:view/assignments/:assignment/download", h.download)
}

func (h *SubmissionHandler) params(c *fiber.Ctx) (string, uint, error) {
	viewID, err := viewParam(c)
	if err != nil {
		return "", 0, err
	}
	assignmentID, err := parseUintParam(c, "assignment")
	if err != nil {
		return "", 0, err
	}
	return viewID, assignmentID, nil
}

func (h *SubmissionHandler) open(c *fiber.Ctx) error {
	viewID, assignmentID, err := h.params(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dialog, err := h.service.OpenSubmissionDialog(c.UserContext(), middleware.SessionFromContext(c), viewID, assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission dialog opened", dialog)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	viewID, assignmentID, err := h.params(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dialog, err := h.service.SubmissionDialog(c.UserContext(), middleware.SessionFromContext(c), viewID, assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission dialog retrieved", dialog)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	viewID, assignmentID, err := h.params(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var file *multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		if files := form.File["file"]; len(files) > 0 {
			file = files[0]
		}
	}

	dialog, err := h.service.Submit(c.UserContext(), middleware.SessionFromContext(c), viewID, assignmentID, c.FormValue("content"), file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission stored", dialog)
}

func (h *SubmissionHandler) download(c *fiber.Ctx) error {
	viewID, assignmentID, err := h.params(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.service.Download(c.UserContext(), middleware.SessionFromContext(c), viewID, assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Set(fiber.HeaderContentType, strings.TrimSpace(file.ContentType))
	c.Set(fiber.HeaderContentDisposition, disposition)
	return c.Status(fiber.StatusOK).Send(file.Data)
}
