package p4

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// MoveFileRequest asks for one file to be moved within a changelist.
type MoveFileRequest struct {
	Sources    []FileSpec
	Targets    []FileSpec
	Changelist ChangelistID
	// Description is used when the changelist has to be created.
	Description string
}

// NewMoveFileRequest builds a request for a single source and target path.
func NewMoveFileRequest(source, target string, change ChangelistID) MoveFileRequest {
	return MoveFileRequest{
		Sources:    FileSpecs(source),
		Targets:    FileSpecs(target),
		Changelist: change,
	}
}

// MoveFileResult is the outcome of a move.
type MoveFileResult struct {
	// Message is the server text of the final step(s), one line per message.
	Message    string
	Files      []FileResult
	Changelist ChangelistID
	Steps      []string
}

// MoveReconciler turns a move request into the primitive requests the
// source and target's current open state needs.
type MoveReconciler struct {
	exec       CommandExecutor
	probe      FileStatusProbe
	maxResults int
	onRevert   RevertListener
	logger     *log.Logger
}

// NewMoveReconciler creates a reconciler over the given executor and probe.
func NewMoveReconciler(exec CommandExecutor, probe FileStatusProbe) *MoveReconciler {
	return &MoveReconciler{
		exec:       exec,
		probe:      probe,
		maxResults: 1,
		logger:     log.Default().WithPrefix("move"),
	}
}

// SetMaxResults limits how many records each status probe may return.
func (m *MoveReconciler) SetMaxResults(n int) {
	if n > 0 {
		m.maxResults = n
	}
}

func (m *MoveReconciler) MaxResults() int {
	return m.maxResults
}

// OnRevert registers a callback for every revert the move performs.
func (m *MoveReconciler) OnRevert(listener RevertListener) {
	m.onRevert = listener
}

func (m *MoveReconciler) SetLogger(logger *log.Logger) {
	m.logger = logger
}

// moveRun holds the state of one MoveFile call.
type moveRun struct {
	m         *MoveReconciler
	req       MoveFileRequest
	source    FileSpec
	target    FileSpec
	srcStatus *OpenFileStatus
	tgtStatus *OpenFileStatus
	change    ChangelistID
	resolved  bool
}

// MoveFile moves the single source of req onto its single target.
//
// Server errors abort the move at the failing step; earlier steps are not
// undone.
func (m *MoveReconciler) MoveFile(ctx context.Context, req MoveFileRequest) (*MoveFileResult, error) {
	if err := validateSinglePair(req.Sources, req.Targets); err != nil {
		return nil, err
	}
	if req.Changelist.State == ChangelistSubmitted {
		return nil, fmt.Errorf("move into change %d: %w", req.Changelist.Number, ErrSubmittedChangelist)
	}

	run := &moveRun{m: m, req: req, source: req.Sources[0], target: req.Targets[0]}
	m.logger.Info("Running move", "source", run.source, "target", run.target, "change", req.Changelist)

	var err error
	if run.srcStatus, err = m.status(ctx, run.source); err != nil {
		return nil, err
	}
	if run.tgtStatus, err = m.status(ctx, run.target); err != nil {
		return nil, err
	}

	plan := planMove(classifySource(run.srcStatus), classifyTarget(run.tgtStatus))
	m.logger.Debug("Move plan", "plan", plan)

	result := &MoveFileResult{}
	var reported []FileResult
	var notes []string
	for _, step := range plan.steps {
		result.Steps = append(result.Steps, step.String())
		res, err := run.execute(ctx, step)
		if err != nil {
			return nil, err
		}
		if !step.report {
			continue
		}
		if step.kind == stepSkip {
			notes = append(notes, step.note)
			continue
		}
		reported = append(reported, res...)
	}

	result.Files = reported
	result.Message = ResultMessages(reported, "\n")
	if len(notes) > 0 {
		result.Message = notes[0]
	}
	result.Changelist = req.Changelist
	if run.resolved {
		result.Changelist = run.change
	}
	m.logger.Debug("Move complete", "message", result.Message)
	return result, nil
}

func (m *MoveReconciler) status(ctx context.Context, spec FileSpec) (*OpenFileStatus, error) {
	results, err := m.probe.OpenedFileDetails(ctx, []FileSpec{spec}, m.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", spec, err)
	}
	status := NewOpenFileStatus(results)
	if err := status.Err(); err != nil {
		return nil, err
	}
	m.logger.Debug("Status", "file", spec, "status", status)
	return status, nil
}

func (r *moveRun) execute(ctx context.Context, step moveStep) ([]FileResult, error) {
	file := r.source
	if step.side == onTarget {
		file = r.target
	}

	var results []FileResult
	var err error
	switch step.kind {
	case stepSkip:
		r.m.logger.Debug("Nothing to run", "reason", step.note)
		return nil, nil

	case stepRevert:
		files := r.revertFiles(step)
		if r.m.onRevert != nil {
			r.m.onRevert(files, step.note)
		}
		results, err = r.m.exec.RevertFiles(ctx, files)
		if err == nil {
			r.m.logger.Info("Reverted", "files", files, "results", ResultMessages(results, "; "))
		}

	case stepEdit, stepAdd, stepIntegrate, stepDelete, stepMove:
		change, cerr := r.changelist(ctx)
		if cerr != nil {
			return nil, cerr
		}
		switch step.kind {
		case stepEdit:
			results, err = r.m.exec.EditFiles(ctx, []FileSpec{file}, change)
		case stepAdd:
			results, err = r.m.exec.AddFiles(ctx, []FileSpec{file}, change)
		case stepIntegrate:
			results, err = r.m.exec.IntegrateFileTo(ctx, r.source, r.target, change)
		case stepDelete:
			results, err = r.m.exec.DeleteFiles(ctx, []FileSpec{file}, change)
		case stepMove:
			results, err = r.m.exec.MoveFile(ctx, r.source, r.target, change)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", step.kind, file, err)
	}
	if err := ErrorFromResults(results); err != nil {
		r.m.logger.Warn("Move step failed", "step", step, "error", err)
		return nil, err
	}
	return results, nil
}

// revertFiles picks the open records a revert step covers, falling back to
// the requested spec.
func (r *moveRun) revertFiles(step moveStep) []FileSpec {
	status, spec := r.srcStatus, r.source
	if step.side == onTarget {
		status, spec = r.tgtStatus, r.target
	}
	var files []FileSpec
	switch step.reverts {
	case revertAdd:
		files = status.Add()
	case revertDelete:
		files = status.Delete()
	case revertOpen:
		files = status.Open()
	}
	if len(files) == 0 {
		files = []FileSpec{spec}
	}
	return files
}

// changelist resolves the request's changelist on first use, so moves that
// end up doing nothing never create one.
func (r *moveRun) changelist(ctx context.Context) (int, error) {
	if r.resolved {
		return r.change.Number, nil
	}
	desc := r.req.Description
	if desc == "" {
		desc = fmt.Sprintf("Move %s to %s", r.source.Path, r.target.Path)
	}
	change, err := resolveOpenChangelist(ctx, r.m.exec, r.m.logger, r.req.Changelist, desc)
	if err != nil {
		return 0, err
	}
	r.change = change
	r.resolved = true
	return r.change.Number, nil
}
