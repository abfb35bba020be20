package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

// MaxSubmissionFileBytes is the upload limit for submission files (10 MiB).
const MaxSubmissionFileBytes int64 = 10 << 20

// AllowedSubmissionExtensions lists the accepted file extensions, compared case-insensitively.
var AllowedSubmissionExtensions = []string{"pdf", "doc", "docx", "txt", "ppt", "pptx", "xls", "xlsx"}

var (
	// ErrSubmissionEmpty indicates neither text nor a file was provided.
	ErrSubmissionEmpty = errors.New("submission requires text or a file")
	// ErrFileTooLarge indicates the file exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrFileTypeNotAllowed indicates the file extension is not accepted.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	// ErrDeadlinePassed indicates the assignment no longer accepts submissions.
	ErrDeadlinePassed = errors.New("assignment deadline has passed")
	// ErrNoSubmissionFile indicates there is nothing to download.
	ErrNoSubmissionFile = errors.New("submission has no file")
	// ErrSubmissionInProgress indicates another submit is still running.
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// SubmissionState is the submission dialog state.
type SubmissionState string

const (
	SubmissionLoading    SubmissionState = "loading"
	SubmissionNone       SubmissionState = "no_submission"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSubmitted  SubmissionState = "submitted"
	SubmissionGraded     SubmissionState = "graded"
)

// SubmissionDialog is the per-assignment dialog state held by a view.
type SubmissionDialog struct {
	AssignmentID uint               `json:"assignment_id"`
	LessonID     uint               `json:"lesson_id"`
	State        SubmissionState    `json:"state"`
	Submission   *models.Submission `json:"submission,omitempty"`
	Banner       string             `json:"banner,omitempty"`
}

func submissionStateFor(submission *models.Submission) SubmissionState {
	switch {
	case submission == nil:
		return SubmissionNone
	case submission.IsGraded():
		return SubmissionGraded
	default:
		return SubmissionSubmitted
	}
}

// FileMeta is the part of an upload that validation looks at.
type FileMeta struct {
	Name string
	Size int64
}

// ValidateSubmission checks the local constraints before any network call.
// Only size and extension are checked; content is never sniffed.
func ValidateSubmission(text string, file *FileMeta, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxSubmissionFileBytes
	}
	if strings.TrimSpace(text) == "" && file == nil {
		return ErrSubmissionEmpty
	}
	if file == nil {
		return nil
	}
	if file.Size > maxBytes {
		return ErrFileTooLarge
	}
	if !allowedExtension(file.Name) {
		return ErrFileTypeNotAllowed
	}
	return nil
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range AllowedSubmissionExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Download is a file ready to be saved by the browser.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

// SubmissionService drives the assignment submission dialog.
type SubmissionService interface {
	Open(ctx context.Context, session learnapi.Session, assignment models.Assignment) SubmissionDialog
	Submit(ctx context.Context, session learnapi.Session, dialog SubmissionDialog, assignment models.Assignment, text string, file *multipart.FileHeader) (SubmissionDialog, error)
	Download(ctx context.Context, session learnapi.Session, dialog SubmissionDialog) (SubmissionDialog, Download, error)
	CanSubmit(assignment models.Assignment) bool
	MaxFileBytes() int64
}

type submissionService struct {
	backend      SubmissionBackend
	maxFileBytes int64
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(backend SubmissionBackend, maxFileMB int, logger zerolog.Logger) SubmissionService {
	maxBytes := MaxSubmissionFileBytes
	if maxFileMB > 0 {
		maxBytes = int64(maxFileMB) << 20
	}
	return &submissionService{
		backend:      backend,
		maxFileBytes: maxBytes,
		logger:       logger.With().Str("component", "submission_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/submission"),
		now:          time.Now,
	}
}

func (s *submissionService) MaxFileBytes() int64 {
	return s.maxFileBytes
}

func (s *submissionService) CanSubmit(assignment models.Assignment) bool {
	return assignment.AcceptsSubmissions(s.now())
}

func (s *submissionService) Open(ctx context.Context, session learnapi.Session, assignment models.Assignment) SubmissionDialog {
	dialog := SubmissionDialog{AssignmentID: assignment.ID, LessonID: assignment.LessonID, State: SubmissionLoading}
	if !session.Authenticated() {
		dialog.State = SubmissionNone
		return dialog
	}

	submission, err := s.backend.GetMySubmission(ctx, session, assignment.ID)
	switch {
	case err == nil:
		if submission.AssignmentID == 0 {
			submission.AssignmentID = assignment.ID
		}
		dialog.Submission = &submission
	case learnapi.IsAbsent(err):
	default:
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to load submission")
		dialog.Banner = bannerMessage(err, "could not load your submission")
	}

	dialog.State = submissionStateFor(dialog.Submission)
	return dialog
}

func (s *submissionService) Submit(ctx context.Context, session learnapi.Session, dialog SubmissionDialog, assignment models.Assignment, text string, file *multipart.FileHeader) (SubmissionDialog, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	defer span.End()
	span.SetAttributes(attribute.Int64("assignment.id", int64(assignment.ID)))

	if !assignment.AcceptsSubmissions(s.now()) {
		return dialog, ErrDeadlinePassed
	}
	if dialog.State == SubmissionSubmitting {
		return dialog, ErrSubmissionInProgress
	}

	content := text
	if strings.TrimSpace(content) == "" {
		content = ""
	}
	var meta *FileMeta
	if file != nil {
		meta = &FileMeta{Name: file.Filename, Size: file.Size}
	}
	if err := ValidateSubmission(content, meta, s.maxFileBytes); err != nil {
		return dialog, err
	}

	previous := dialog.State
	dialog.State = SubmissionSubmitting

	upload := learnapi.SubmissionUpload{Content: content}
	if file != nil {
		reader, err := file.Open()
		if err != nil {
			dialog.State = previous
			return dialog, fmt.Errorf("failed to open file: %w", err)
		}
		defer reader.Close()
		upload.FileName = filepath.Base(file.Filename)
		upload.File = reader
	}

	submission, err := s.backend.SubmitAssignment(ctx, session, assignment.ID, upload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("submission failed")
		dialog.State = previous
		dialog.Banner = bannerMessage(err, "submission failed, please try again")
		return dialog, err
	}

	if submission.AssignmentID == 0 {
		submission.AssignmentID = assignment.ID
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = s.now().UTC()
	}

	dialog.Submission = &submission
	dialog.State = submissionStateFor(&submission)
	dialog.Banner = ""

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("state", string(dialog.State)).Msg("submission stored")
	return dialog, nil
}

func (s *submissionService) Download(ctx context.Context, session learnapi.Session, dialog SubmissionDialog) (SubmissionDialog, Download, error) {
	if dialog.Submission == nil || !dialog.Submission.HasFile() {
		return dialog, Download{}, ErrNoSubmissionFile
	}

	file, err := s.backend.DownloadSubmission(ctx, session, dialog.AssignmentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", dialog.AssignmentID).Msg("download failed")
		dialog.Banner = bannerMessage(err, "download failed")
		return dialog, Download{}, err
	}

	detected := mimetype.Detect(file.Data)
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = detected.String()
	}

	name := strings.TrimSpace(dialog.Submission.FileName)
	if name == "" {
		name = strings.TrimSpace(file.Name)
	}
	if filepath.Ext(name) == "" {
		name += detected.Extension()
	}

	dialog.Banner = ""
	return dialog, Download{Name: filepath.Base(name), ContentType: contentType, Data: file.Data}, nil
}

func bannerMessage(err error, fallback string) string {
	var apiErr *learnapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fallback + ": " + apiErr.Message
	}
	return fallback
}
