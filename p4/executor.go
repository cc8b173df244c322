package p4

import (
	"context"
	"errors"
)

var (
	// ErrInvalidArgument marks a caller error; retrying won't help.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrNoSuchChangelist    = errors.New("no such pending change")
	ErrAlreadySubmitted    = errors.New("already submitted")
	ErrDescriptionRequired = errors.New("must include a description")
	ErrSubmittedChangelist = errors.New("cannot open files in a submitted changelist")
)

// SubmitRequest is what the executor needs to submit a changelist.
type SubmitRequest struct {
	Changelist  int
	Description string
	Files       []FileSpec
	JobIDs      []string
	JobStatus   JobStatus
}

// CommandExecutor runs primitive requests against the server. Each call
// blocks until the server answers; cancellation is through ctx.
//
// File operations return one FileResult per affected file or server message.
// Protocol and connection failures come back as the error.
type CommandExecutor interface {
	// RevertFiles reverts the open state but leaves the local files alone.
	RevertFiles(ctx context.Context, files []FileSpec) ([]FileResult, error)
	EditFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error)
	AddFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error)
	DeleteFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error)
	IntegrateFileTo(ctx context.Context, source, target FileSpec, change int) ([]FileResult, error)
	MoveFile(ctx context.Context, source, target FileSpec, change int) ([]FileResult, error)

	// CreateChangelist creates a pending changelist and returns its record.
	CreateChangelist(ctx context.Context, description string) (*Changelist, error)
	// GetChangelistDetails returns nil, nil when the changelist doesn't exist.
	GetChangelistDetails(ctx context.Context, change int) (*Changelist, error)
	UpdateChangelistDescription(ctx context.Context, change int, description string) error
	SubmitChangelist(ctx context.Context, req SubmitRequest) ([]FileResult, error)
}

// FileStatusProbe answers fstat-style open-state queries.
type FileStatusProbe interface {
	OpenedFileDetails(ctx context.Context, files []FileSpec, maxResults int) ([]FileResult, error)
}

// PendingChangelistCache is told about changelists once they are submitted.
type PendingChangelistCache interface {
	ChangelistSubmitted(pending ChangelistID, submitted int)
}

// RevertListener is told about every revert a reconciler performs. The
// local files are never touched, only the server's open state.
type RevertListener func(files []FileSpec, reason string)
