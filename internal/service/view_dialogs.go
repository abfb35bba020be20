package service

import (
	"context"
	"mime/multipart"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

func (s *viewService) submissionResponse(assignment models.Assignment, dialog SubmissionDialog) dto.SubmissionDialogResponse {
	allowed := make([]string, len(AllowedSubmissionExtensions))
	copy(allowed, AllowedSubmissionExtensions)
	return dto.SubmissionDialogResponse{
		AssignmentID: assignment.ID,
		LessonID:     dialog.LessonID,
		Title:        assignment.Title,
		MaxPoints:    assignment.MaxPoints,
		State:        string(dialog.State),
		Submission:   dialog.Submission,
		Banner:       dialog.Banner,
		Form: dto.SubmissionFormResponse{
			CanSubmit:         s.submissions.CanSubmit(assignment),
			Deadline:          assignment.Deadline,
			MaxFileBytes:      s.submissions.MaxFileBytes(),
			AllowedExtensions: allowed,
		},
	}
}

func findAssignment(view View, assignmentID uint) (models.Assignment, error) {
	assignment, lessonID, ok := view.Course.FindAssignment(assignmentID)
	if !ok {
		return models.Assignment{}, ErrAssignmentNotFound
	}
	if assignment.LessonID == 0 {
		assignment.LessonID = lessonID
	}
	return assignment, nil
}

func (s *viewService) OpenSubmissionDialog(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (dto.SubmissionDialogResponse, error) {
	var response dto.SubmissionDialogResponse
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		assignment, err := findAssignment(*view, assignmentID)
		if err != nil {
			return err
		}
		dialog := s.submissions.Open(ctx, session, assignment)
		if dialog.Submission != nil {
			view.Submissions[assignmentID] = *dialog.Submission
		} else if cached, ok := view.Submissions[assignmentID]; ok && dialog.Banner != "" {
			dialog.Submission = &cached
			dialog.State = submissionStateFor(&cached)
		}
		view.SubmissionDialogs[assignmentID] = dialog
		response = s.submissionResponse(assignment, dialog)
		return nil
	})
	return response, err
}

func (s *viewService) SubmissionDialog(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (dto.SubmissionDialogResponse, error) {
	view, err := s.load(ctx, session, viewID)
	if err != nil {
		return dto.SubmissionDialogResponse{}, err
	}
	assignment, err := findAssignment(view, assignmentID)
	if err != nil {
		return dto.SubmissionDialogResponse{}, err
	}
	dialog, ok := view.SubmissionDialogs[assignmentID]
	if !ok {
		return dto.SubmissionDialogResponse{}, ErrDialogNotOpen
	}
	return s.submissionResponse(assignment, dialog), nil
}

func (s *viewService) Submit(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint, text string, file *multipart.FileHeader) (dto.SubmissionDialogResponse, error) {
	var response dto.SubmissionDialogResponse
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		assignment, err := findAssignment(*view, assignmentID)
		if err != nil {
			return err
		}
		dialog, ok := view.SubmissionDialogs[assignmentID]
		if !ok {
			return ErrDialogNotOpen
		}

		dialog, submitErr := s.submissions.Submit(ctx, session, dialog, assignment, text, file)
		if submitErr == nil && dialog.Submission != nil {
			view.Submissions[assignmentID] = *dialog.Submission
		}
		view.SubmissionDialogs[assignmentID] = dialog
		response = s.submissionResponse(assignment, dialog)
		return submitErr
	})
	return response, err
}

func (s *viewService) Download(ctx context.Context, session learnapi.Session, viewID string, assignmentID uint) (Download, error) {
	var download Download
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		if _, err := findAssignment(*view, assignmentID); err != nil {
			return err
		}
		dialog, ok := view.SubmissionDialogs[assignmentID]
		if !ok {
			return ErrDialogNotOpen
		}
		dialog, file, err := s.submissions.Download(ctx, session, dialog)
		view.SubmissionDialogs[assignmentID] = dialog
		download = file
		return err
	})
	return download, err
}

func (s *viewService) quizDialog(view *View, lessonID uint) (QuizDialog, error) {
	if _, _, ok := view.Course.FindLesson(lessonID); !ok {
		return QuizDialog{}, ErrLessonNotFound
	}
	dialog, ok := view.QuizDialogs[lessonID]
	if !ok {
		return QuizDialog{}, ErrDialogNotOpen
	}
	return dialog.Resolve(s.quizzes.Now()), nil
}

// mutateQuiz resolves any due auto-advance, applies fn and stores the dialog.
func (s *viewService) mutateQuiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, fn func(dialog QuizDialog) (QuizDialog, error)) (dto.QuizDialogResponse, error) {
	var response dto.QuizDialogResponse
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		dialog, err := s.quizDialog(view, lessonID)
		if err != nil {
			return err
		}
		dialog, fnErr := fn(dialog)
		view.QuizDialogs[lessonID] = dialog
		for quizID, attempt := range dialog.Attempts {
			view.Attempts[quizID] = attempt
		}
		response = dialog.Response()
		return fnErr
	})
	if err != nil {
		return dto.QuizDialogResponse{}, err
	}
	return response, nil
}

func (s *viewService) OpenQuiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error) {
	var response dto.QuizDialogResponse
	_, err := s.mutate(ctx, session, viewID, func(view *View) error {
		lesson, _, ok := view.Course.FindLesson(lessonID)
		if !ok {
			return ErrLessonNotFound
		}
		dialog := s.quizzes.Open(ctx, session, lesson)
		for quizID, attempt := range dialog.Attempts {
			view.Attempts[quizID] = attempt
		}
		view.QuizDialogs[lessonID] = dialog
		response = dialog.Response()
		return nil
	})
	return response, err
}

func (s *viewService) Quiz(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error) {
	return s.mutateQuiz(ctx, session, viewID, lessonID, func(dialog QuizDialog) (QuizDialog, error) {
		return dialog, nil
	})
}

func (s *viewService) SelectOption(ctx context.Context, session learnapi.Session, viewID string, lessonID uint, option int) (dto.QuizDialogResponse, error) {
	return s.mutateQuiz(ctx, session, viewID, lessonID, func(dialog QuizDialog) (QuizDialog, error) {
		return dialog.Select(option)
	})
}

func (s *viewService) SubmitAnswer(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error) {
	return s.mutateQuiz(ctx, session, viewID, lessonID, func(dialog QuizDialog) (QuizDialog, error) {
		return s.quizzes.SubmitAnswer(ctx, session, dialog)
	})
}

func (s *viewService) PreviousQuestion(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error) {
	return s.mutateQuiz(ctx, session, viewID, lessonID, func(dialog QuizDialog) (QuizDialog, error) {
		return dialog.Previous()
	})
}

func (s *viewService) NextQuestion(ctx context.Context, session learnapi.Session, viewID string, lessonID uint) (dto.QuizDialogResponse, error) {
	return s.mutateQuiz(ctx, session, viewID, lessonID, func(dialog QuizDialog) (QuizDialog, error) {
		return dialog.Next()
	})
}
