package p4

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/groboclown/p4-golang/messages"
)

// ErrNothingOpened is returned when the server answered an open request
// without a file record.
var ErrNothingOpened = errors.New("server opened no files")

// resolveOpenChangelist maps the id files should be opened in to a concrete
// changelist, creating one for pending-creation ids.
func resolveOpenChangelist(ctx context.Context, exec CommandExecutor, logger *log.Logger, id ChangelistID, description string) (ChangelistID, error) {
	switch id.State {
	case ChangelistDefault:
		return DefaultChangelist(), nil
	case ChangelistNumbered:
		return id, nil
	case ChangelistPendingCreation:
		created, err := exec.CreateChangelist(ctx, description)
		if err != nil {
			return ChangelistID{}, fmt.Errorf("failed to create changelist: %w", err)
		}
		logger.Debug("Created changelist", "change", created.Number)
		return NumberedChangelist(created.Number), nil
	default:
		return ChangelistID{}, fmt.Errorf("change %s: %w", id, ErrSubmittedChangelist)
	}
}

// OpenFileResult is the outcome of opening a single file.
type OpenFileResult struct {
	File FileResult
	// Added is true when the file was opened for add rather than edit.
	Added      bool
	Changelist ChangelistID
	Message    string
	// AlreadyOpen is true when the file was already in the requested state.
	AlreadyOpen bool
}

// FileReconciler opens single files for add, edit or delete, reverting
// whatever conflicting open state the file has first.
type FileReconciler struct {
	exec       CommandExecutor
	probe      FileStatusProbe
	maxResults int
	onRevert   RevertListener
	logger     *log.Logger
}

func NewFileReconciler(exec CommandExecutor, probe FileStatusProbe) *FileReconciler {
	return &FileReconciler{
		exec:       exec,
		probe:      probe,
		maxResults: 1000,
		logger:     log.Default().WithPrefix("open"),
	}
}

func (f *FileReconciler) SetMaxResults(n int) {
	if n > 0 {
		f.maxResults = n
	}
}

func (f *FileReconciler) MaxResults() int {
	return f.maxResults
}

func (f *FileReconciler) OnRevert(listener RevertListener) {
	f.onRevert = listener
}

func (f *FileReconciler) SetLogger(logger *log.Logger) {
	f.logger = logger
}

func (f *FileReconciler) status(ctx context.Context, file FileSpec) (*OpenFileStatus, error) {
	results, err := f.probe.OpenedFileDetails(ctx, []FileSpec{file}, f.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", file, err)
	}
	status := NewOpenFileStatus(results)
	if err := status.Err(); err != nil {
		return nil, err
	}
	return status, nil
}

func (f *FileReconciler) revert(ctx context.Context, files []FileSpec, reason string) ([]FileResult, error) {
	if f.onRevert != nil {
		f.onRevert(files, reason)
	}
	results, err := f.exec.RevertFiles(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("failed to revert %v: %w", files, err)
	}
	f.logger.Info("Reverted", "files", files, "results", ResultMessages(results, "; "))
	if err := ErrorFromResults(results); err != nil {
		return nil, err
	}
	return results, nil
}

// AddOrEdit opens the file for add when the server doesn't know it, and for
// edit otherwise. A file open for delete has the delete reverted and is
// opened for edit.
func (f *FileReconciler) AddOrEdit(ctx context.Context, file FileSpec, change ChangelistID) (*OpenFileResult, error) {
	status, err := f.status(ctx, file)
	if err != nil {
		return nil, err
	}

	if status.HasAddOrEdit() {
		f.logger.Info("Already opened for add/edit", "file", file)
		open := status.open[0]
		return &OpenFileResult{
			File:        open,
			Added:       open.Action.IsAdd(),
			Changelist:  ChangelistFromNumber(open.Changelist),
			AlreadyOpen: true,
		}, nil
	}

	add := status.IsNotOnServer()
	if status.HasDelete() {
		if _, err := f.revert(ctx, status.Delete(), "file open for delete; delete reverted to open it for edit, local file kept"); err != nil {
			return nil, err
		}
	}

	target, err := resolveOpenChangelist(ctx, f.exec, f.logger, change, fmt.Sprintf("Open %s", file.Path))
	if err != nil {
		return nil, err
	}

	var results []FileResult
	if add {
		f.logger.Debug("Opening for add", "file", file, "change", target)
		results, err = f.exec.AddFiles(ctx, []FileSpec{file}, target.Number)
	} else {
		f.logger.Debug("Opening for edit", "file", file, "change", target)
		results, err = f.exec.EditFiles(ctx, []FileSpec{file}, target.Number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	opened, err := requireOpened(results)
	if err != nil {
		return nil, err
	}

	ret := &OpenFileResult{
		File:       opened,
		Added:      add,
		Changelist: target,
		Message:    ResultMessages(results, "\n"),
	}
	if opened.Changelist != target.Number && opened.Changelist != UnknownChangelistNumber {
		ret.Changelist = ChangelistFromNumber(opened.Changelist)
	}
	return ret, nil
}

// requireOpened returns the first file record, failing on warnings, errors
// or an answer with no record.
func requireOpened(results []FileResult) (FileResult, error) {
	for _, r := range results {
		if r.HasMessage() && r.Message.HasSeverity(messages.SeverityWarning) {
			return FileResult{}, &messages.ServerError{Message: r.Message}
		}
	}
	for _, r := range results {
		if !r.HasMessage() {
			return r, nil
		}
	}
	return FileResult{}, ErrNothingOpened
}

// DeleteResult is the outcome of opening a file for delete.
type DeleteResult struct {
	Files   []FileResult
	Message string
	// Reverted is true when the file was open for add and the add was
	// reverted instead of deleting it.
	Reverted bool
}

// Delete opens the file for delete. A file open for add just has the add
// reverted, and a file open for edit has the edit reverted first.
func (f *FileReconciler) Delete(ctx context.Context, file FileSpec, change ChangelistID) (*DeleteResult, error) {
	status, err := f.status(ctx, file)
	if err != nil {
		return nil, err
	}

	if status.HasDelete() {
		f.logger.Info("Skipping delete on file already open for delete", "file", file)
		var msgs []*messages.Message
		for _, r := range status.FilesWithMessages() {
			msgs = append(msgs, r.Message)
		}
		return &DeleteResult{Files: status.delete, Message: messages.Join(msgs...).String()}, nil
	}
	if status.HasAdd() {
		results, err := f.revert(ctx, status.Add(), "file open for add; add reverted instead of deleting, local file kept")
		if err != nil {
			return nil, err
		}
		return &DeleteResult{Files: status.add, Message: ResultMessages(results, "\n"), Reverted: true}, nil
	}
	if status.HasEdit() {
		if _, err := f.revert(ctx, status.Edit(), "file open for edit; edit reverted before delete, local file kept"); err != nil {
			return nil, err
		}
	}

	target, err := resolveOpenChangelist(ctx, f.exec, f.logger, change, fmt.Sprintf("Delete %s", file.Path))
	if err != nil {
		return nil, err
	}
	results, err := f.exec.DeleteFiles(ctx, []FileSpec{file}, target.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s: %w", file, err)
	}
	for _, r := range results {
		if !r.HasMessage() || r.Message.IsFileNotFound() {
			continue
		}
		if r.Message.HasSeverity(messages.SeverityWarning) {
			f.logger.Warn("Delete rejected", "file", file, "code", r.Message.Code())
			return nil, &messages.ServerError{Message: r.Message}
		}
	}
	return &DeleteResult{Files: results, Message: ResultMessages(results, "\n")}, nil
}
