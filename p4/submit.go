package p4

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/groboclown/p4-golang/messages"
)

// SubmitChangelistRequest asks for files of a changelist to be submitted.
type SubmitChangelistRequest struct {
	Changelist ChangelistID
	// Description replaces the changelist's description when not blank.
	Description string
	Files       []FileSpec
	JobIDs      []string
	JobStatus   JobStatus
}

// SubmitChangelistResult is the outcome of a successful submit.
type SubmitChangelistResult struct {
	// Changelist is the pending changelist that was submitted.
	Changelist ChangelistID
	// SubmittedNumber is the number the server gave the submitted change.
	SubmittedNumber int
	Files           []FileResult
	Info            string
}

// SubmitReconciler resolves a changelist id to a concrete pending
// changelist and submits it.
type SubmitReconciler struct {
	exec   CommandExecutor
	cache  PendingChangelistCache
	logger *log.Logger
}

func NewSubmitReconciler(exec CommandExecutor) *SubmitReconciler {
	return &SubmitReconciler{
		exec:   exec,
		logger: log.Default().WithPrefix("submit"),
	}
}

// SetPendingCache registers the cache told about submitted changelists.
func (s *SubmitReconciler) SetPendingCache(cache PendingChangelistCache) {
	s.cache = cache
}

func (s *SubmitReconciler) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SubmitChangelist submits the requested changelist.
//
// Default and pending-creation ids always get a new changelist. A numbered
// id must name an existing pending changelist. Warning and error messages in
// the submit response abort with the server's text.
func (s *SubmitReconciler) SubmitChangelist(ctx context.Context, req SubmitChangelistRequest) (*SubmitChangelistResult, error) {
	desc := strings.TrimSpace(req.Description)

	change, err := s.resolve(ctx, req.Changelist, desc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Submitting changelist", "change", change.Number, "files", len(req.Files))

	results, err := s.exec.SubmitChangelist(ctx, SubmitRequest{
		Changelist:  change.Number,
		Description: change.Description,
		Files:       req.Files,
		JobIDs:      req.JobIDs,
		JobStatus:   req.JobStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit change %d: %w", change.Number, err)
	}

	pending := NumberedChangelist(change.Number)
	ret := &SubmitChangelistResult{Changelist: pending, SubmittedNumber: change.Number}
	for _, r := range results {
		if !r.HasMessage() {
			ret.Files = append(ret.Files, r)
			if r.SubmittedChange > 0 {
				ret.SubmittedNumber = r.SubmittedChange
			}
			continue
		}
		if r.Message.HasSeverity(messages.SeverityWarning) {
			s.logger.Warn("Submit rejected", "change", change.Number, "code", r.Message.Code())
			return nil, &messages.ServerError{Message: r.Message}
		}
		if r.Message.IsInfo() {
			ret.Info = r.Message.String()
		}
		if r.SubmittedChange > 0 {
			ret.SubmittedNumber = r.SubmittedChange
		}
	}

	if s.cache != nil {
		s.cache.ChangelistSubmitted(pending, ret.SubmittedNumber)
	}
	s.logger.Info("Submitted changelist", "change", ret.SubmittedNumber, "files", len(ret.Files))
	return ret, nil
}

// resolve returns the pending changelist to submit, with its description set.
func (s *SubmitReconciler) resolve(ctx context.Context, id ChangelistID, desc string) (*Changelist, error) {
	switch id.State {
	case ChangelistDefault, ChangelistPendingCreation:
		if desc == "" {
			return nil, fmt.Errorf("new changelist: %w", ErrDescriptionRequired)
		}
		created, err := s.exec.CreateChangelist(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create changelist: %w", err)
		}
		s.logger.Debug("Created changelist for submit", "change", created.Number)
		created.Description = desc
		return created, nil

	case ChangelistSubmitted:
		return nil, fmt.Errorf("change %d: %w", id.Number, ErrAlreadySubmitted)
	}

	existing, err := s.exec.GetChangelistDetails(ctx, id.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to load change %d: %w", id.Number, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("change %d: %w", id.Number, ErrNoSuchChangelist)
	}
	if existing.Status == StatusSubmitted {
		return nil, fmt.Errorf("change %d: %w", id.Number, ErrAlreadySubmitted)
	}

	switch {
	case desc != "":
		if desc != existing.Description {
			if err := s.exec.UpdateChangelistDescription(ctx, existing.Number, desc); err != nil {
				return nil, fmt.Errorf("failed to update description of change %d: %w", existing.Number, err)
			}
		}
		existing.Description = desc
	case strings.TrimSpace(existing.Description) == "":
		return nil, fmt.Errorf("change %d: %w", existing.Number, ErrDescriptionRequired)
	}
	return existing, nil
}
