package p4

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/groboclown/p4-golang/messages"
)

// MockFile is the mock server's bookkeeping for one depot path
type MockFile struct {
	DepotPath  string
	HeadRev    int
	HeadAction FileAction // ActionNone when the file was never submitted
	OpenAction FileAction
	Changelist int
	MovedFile  string
}

func (f *MockFile) onServer() bool {
	return f.HeadRev > 0 && !f.HeadAction.IsDelete()
}

// MockCall records one request received by the mock server
type MockCall struct {
	Op     string
	Files  []string
	Change int
}

func (c MockCall) String() string {
	return fmt.Sprintf("%s %v @%d", c.Op, c.Files, c.Change)
}

// Operation names used in MockCall.Op and for failure injection
const (
	OpFstat        = "fstat"
	OpRevert       = "revert"
	OpEdit         = "edit"
	OpAdd          = "add"
	OpDelete       = "delete"
	OpIntegrate    = "integrate"
	OpMove         = "move"
	OpCreateChange = "change-create"
	OpGetChange    = "change-get"
	OpUpdateChange = "change-update"
	OpSubmit       = "submit"
)

// MockServer simulates a server's file and changelist bookkeeping for
// testing. It implements CommandExecutor and FileStatusProbe.
type MockServer struct {
	mu         sync.Mutex
	files      map[string]*MockFile
	changes    map[int]*Changelist
	nextChange int
	calls      []MockCall
	failMsgs   map[string]*messages.Message
	failErrs   map[string]error
}

// NewMockServer creates an empty mock server
func NewMockServer() *MockServer {
	return &MockServer{
		files:    make(map[string]*MockFile),
		changes:  make(map[int]*Changelist),
		failMsgs: make(map[string]*messages.Message),
		failErrs: make(map[string]error),
	}
}

// AddDepotFile seeds a submitted file at the given head revision.
func (s *MockServer) AddDepotFile(path string, rev int) *MockServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &MockFile{DepotPath: path, HeadRev: rev, HeadAction: ActionEdit}
	if rev == 1 {
		s.files[path].HeadAction = ActionAdd
	}
	return s
}

// AddDeletedFile seeds a file whose head revision is a delete.
func (s *MockServer) AddDeletedFile(path string, rev int) *MockServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &MockFile{DepotPath: path, HeadRev: rev, HeadAction: ActionDelete}
	return s
}

// SetOpen seeds the open state of a file, creating it if needed.
func (s *MockServer) SetOpen(path string, action FileAction, change int) *MockServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.file(path)
	f.OpenAction = action
	f.Changelist = change
	return s
}

// AddChangelist seeds a changelist record.
func (s *MockServer) AddChangelist(c Changelist) *MockServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.changes[c.Number] = &cp
	if c.Number > s.nextChange {
		s.nextChange = c.Number
	}
	return s
}

// FailNext makes the next call of op answer with msg instead of running.
func (s *MockServer) FailNext(op string, msg *messages.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMsgs[op] = msg
}

// BreakNext makes the next call of op fail with a transport error.
func (s *MockServer) BreakNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErrs[op] = err
}

// File returns a copy of the file's bookkeeping, or nil.
func (s *MockServer) File(path string) *MockFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil
	}
	cp := *f
	return &cp
}

// Changelist returns a copy of the changelist record, or nil.
func (s *MockServer) Changelist(n int) *Changelist {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.changes[n]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Calls returns the requests received so far.
func (s *MockServer) Calls() []MockCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MockCall(nil), s.calls...)
}

// Ops returns the operation names of the requests received so far,
// excluding status probes.
func (s *MockServer) Ops() []string {
	var ops []string
	for _, c := range s.Calls() {
		if c.Op != OpFstat {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

func (s *MockServer) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *MockServer) file(path string) *MockFile {
	f, ok := s.files[path]
	if !ok {
		f = &MockFile{DepotPath: path}
		s.files[path] = f
	}
	return f
}

// begin records the call and returns any injected failure. Must hold mu.
func (s *MockServer) begin(ctx context.Context, op string, files []FileSpec, change int) ([]FileResult, bool, error) {
	call := MockCall{Op: op, Change: change}
	for _, f := range files {
		call.Files = append(call.Files, f.Path)
	}
	s.calls = append(s.calls, call)
	log.Debugf("Mock server received: %s", call)

	if err := ctx.Err(); err != nil {
		return nil, true, err
	}
	if err, ok := s.failErrs[op]; ok {
		delete(s.failErrs, op)
		return nil, true, err
	}
	if msg, ok := s.failMsgs[op]; ok {
		delete(s.failMsgs, op)
		return []FileResult{{Message: msg}}, true, nil
	}
	return nil, false, nil
}

func info(format string, args ...any) FileResult {
	return FileResult{Message: messages.Info(fmt.Sprintf(format, args...))}
}

func warn(generic int, format string, args ...any) FileResult {
	return FileResult{Message: messages.Warning(generic, fmt.Sprintf(format, args...))}
}

func fail(generic int, format string, args ...any) FileResult {
	return FileResult{Message: messages.Error(generic, fmt.Sprintf(format, args...))}
}

func noSuchFile(path string) FileResult {
	args := map[string]string{"depotFile": path}
	raw := messages.Encode(messages.SeverityWarning, messages.GenericEmpty, messages.SubsystemDM, 3)
	return FileResult{Message: messages.New(messages.Decode(raw, "%depotFile% - no such file(s).", args))}
}

func (f *MockFile) record() FileResult {
	return FileResult{
		DepotPath:  f.DepotPath,
		Action:     f.OpenAction,
		HeadAction: f.HeadAction,
		HeadRev:    f.HeadRev,
		Changelist: f.Changelist,
		MovedFile:  f.MovedFile,
	}
}

func (s *MockServer) OpenedFileDetails(ctx context.Context, files []FileSpec, maxResults int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpFstat, files, 0); done {
		return ret, err
	}

	var ret []FileResult
	records := 0
	for _, spec := range files {
		f, ok := s.files[spec.Path]
		if !ok || (f.HeadRev == 0 && f.OpenAction == ActionNone) {
			ret = append(ret, noSuchFile(spec.Path))
			continue
		}
		if maxResults > 0 && records >= maxResults {
			continue
		}
		records++
		ret = append(ret, f.record())
	}
	return ret, nil
}

func (s *MockServer) RevertFiles(ctx context.Context, files []FileSpec) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpRevert, files, 0); done {
		return ret, err
	}

	var ret []FileResult
	for _, spec := range files {
		f, ok := s.files[spec.Path]
		if !ok || f.OpenAction == ActionNone {
			ret = append(ret, warn(messages.GenericEmpty, "%s - file(s) not opened on this client.", spec.Path))
			continue
		}
		was := f.OpenAction
		if was == ActionMoveAdd && f.MovedFile != "" {
			if src, ok := s.files[f.MovedFile]; ok && src.OpenAction == ActionMoveDelete {
				src.OpenAction = ActionNone
				src.Changelist = 0
			}
		}
		f.OpenAction = ActionNone
		f.Changelist = 0
		f.MovedFile = ""
		ret = append(ret, f.record())
		ret = append(ret, info("%s#%d - was %s, reverted", f.DepotPath, f.HeadRev, was))
		if f.HeadRev == 0 {
			delete(s.files, spec.Path)
		}
	}
	return ret, nil
}

func (s *MockServer) EditFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpEdit, files, change); done {
		return ret, err
	}

	var ret []FileResult
	for _, spec := range files {
		f, ok := s.files[spec.Path]
		switch {
		case !ok || !f.onServer():
			ret = append(ret, warn(messages.GenericEmpty, "%s - file(s) not on client.", spec.Path))
		case f.OpenAction != ActionNone:
			ret = append(ret, warn(messages.GenericNotYet, "%s - currently opened for %s", spec.Path, f.OpenAction))
		default:
			f.OpenAction = ActionEdit
			f.Changelist = change
			ret = append(ret, f.record(), info("%s#%d - opened for edit", f.DepotPath, f.HeadRev))
		}
	}
	return ret, nil
}

func (s *MockServer) AddFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpAdd, files, change); done {
		return ret, err
	}

	var ret []FileResult
	for _, spec := range files {
		f := s.file(spec.Path)
		switch {
		case f.OpenAction != ActionNone:
			ret = append(ret, warn(messages.GenericNotYet, "%s - currently opened for %s", spec.Path, f.OpenAction))
		case f.onServer():
			ret = append(ret, warn(messages.GenericNotYet, "%s - can't add existing file", spec.Path))
		default:
			f.OpenAction = ActionAdd
			f.Changelist = change
			ret = append(ret, f.record(), info("%s#%d - opened for add", f.DepotPath, f.HeadRev+1))
		}
	}
	return ret, nil
}

func (s *MockServer) DeleteFiles(ctx context.Context, files []FileSpec, change int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpDelete, files, change); done {
		return ret, err
	}

	var ret []FileResult
	for _, spec := range files {
		f, ok := s.files[spec.Path]
		switch {
		case !ok || !f.onServer():
			ret = append(ret, noSuchFile(spec.Path))
		case f.OpenAction != ActionNone && f.OpenAction != ActionEdit:
			ret = append(ret, warn(messages.GenericNotYet, "%s - currently opened for %s", spec.Path, f.OpenAction))
		default:
			// edits are reopened for delete
			f.OpenAction = ActionDelete
			f.Changelist = change
			ret = append(ret, f.record(), info("%s#%d - opened for delete", f.DepotPath, f.HeadRev))
		}
	}
	return ret, nil
}

func (s *MockServer) IntegrateFileTo(ctx context.Context, source, target FileSpec, change int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpIntegrate, []FileSpec{source, target}, change); done {
		return ret, err
	}

	src, ok := s.files[source.Path]
	if !ok || src.HeadRev == 0 {
		return []FileResult{noSuchFile(source.Path)}, nil
	}
	tgt := s.file(target.Path)
	if tgt.OpenAction != ActionNone {
		return []FileResult{warn(messages.GenericNotYet, "%s - can't integrate (already opened for %s)", target.Path, tgt.OpenAction)}, nil
	}
	tgt.Changelist = change
	if tgt.onServer() {
		tgt.OpenAction = ActionIntegrate
		return []FileResult{tgt.record(), info("%s#%d - integrate from %s#%d", target.Path, tgt.HeadRev+1, source.Path, src.HeadRev)}, nil
	}
	tgt.OpenAction = ActionBranch
	return []FileResult{tgt.record(), info("%s#%d - branch/sync from %s#%d", target.Path, tgt.HeadRev+1, source.Path, src.HeadRev)}, nil
}

func (s *MockServer) MoveFile(ctx context.Context, source, target FileSpec, change int) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpMove, []FileSpec{source, target}, change); done {
		return ret, err
	}

	src, ok := s.files[source.Path]
	if !ok || (src.OpenAction != ActionEdit && src.OpenAction != ActionAdd) {
		return []FileResult{fail(messages.GenericNotYet, "%s - file(s) not opened for edit.", source.Path)}, nil
	}
	if tgt, ok := s.files[target.Path]; ok && (tgt.onServer() || tgt.OpenAction != ActionNone) {
		return []FileResult{fail(messages.GenericIllegal, "%s - can't move to an existing file", target.Path)}, nil
	}

	tgt := s.file(target.Path)
	tgt.OpenAction = ActionMoveAdd
	tgt.Changelist = change
	tgt.MovedFile = source.Path
	src.OpenAction = ActionMoveDelete
	src.Changelist = change
	src.MovedFile = target.Path
	return []FileResult{tgt.record(), info("%s#1 - moved from %s#%d", target.Path, source.Path, src.HeadRev)}, nil
}

func (s *MockServer) CreateChangelist(ctx context.Context, description string) (*Changelist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpCreateChange, nil, 0); done {
		if err == nil {
			err = ErrorFromResults(ret)
		}
		return nil, err
	}

	s.nextChange++
	c := &Changelist{Number: s.nextChange, Status: StatusPending, Description: description}
	s.changes[c.Number] = c
	cp := *c
	return &cp, nil
}

func (s *MockServer) GetChangelistDetails(ctx context.Context, change int) (*Changelist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpGetChange, nil, change); done {
		if err == nil {
			err = ErrorFromResults(ret)
		}
		return nil, err
	}

	c, ok := s.changes[change]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MockServer) UpdateChangelistDescription(ctx context.Context, change int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpUpdateChange, nil, change); done {
		if err == nil {
			err = ErrorFromResults(ret)
		}
		return err
	}

	c, ok := s.changes[change]
	if !ok {
		return fmt.Errorf("change %d: %w", change, ErrNoSuchChangelist)
	}
	c.Description = description
	return nil
}

func (s *MockServer) SubmitChangelist(ctx context.Context, req SubmitRequest) ([]FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ret, done, err := s.begin(ctx, OpSubmit, req.Files, req.Changelist); done {
		return ret, err
	}

	c, ok := s.changes[req.Changelist]
	if !ok || c.Status != StatusPending {
		return []FileResult{fail(messages.GenericUnknown, "Change %d unknown.", req.Changelist)}, nil
	}

	wanted := make(map[string]bool)
	for _, f := range req.Files {
		wanted[f.Path] = true
	}
	var paths []string
	for path, f := range s.files {
		if f.OpenAction == ActionNone {
			continue
		}
		if len(wanted) > 0 && !wanted[path] {
			continue
		}
		// Files opened in the default changelist follow the change being submitted.
		if f.Changelist == req.Changelist || (len(wanted) > 0 && f.Changelist == DefaultChangelistNumber) {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return []FileResult{fail(messages.GenericEmpty, "No files to submit.")}, nil
	}
	sort.Strings(paths)

	number := c.Number
	if number < s.nextChange {
		s.nextChange++
		number = s.nextChange
	}

	var ret []FileResult
	for _, path := range paths {
		f := s.files[path]
		f.HeadRev++
		switch f.OpenAction {
		case ActionMoveDelete, ActionDelete:
			f.HeadAction = ActionDelete
		default:
			f.HeadAction = f.OpenAction
		}
		f.OpenAction = ActionNone
		f.Changelist = 0
		f.MovedFile = ""
		rec := f.record()
		rec.SubmittedChange = number
		ret = append(ret, rec)
	}

	c.Status = StatusSubmitted
	c.Description = req.Description
	c.Jobs = append(c.Jobs, req.JobIDs...)
	delete(s.changes, req.Changelist)
	c.Number = number
	s.changes[number] = c

	submitted := info("Change %d submitted.", number)
	if number != req.Changelist {
		submitted = info("Change %d renamed change %d and submitted.", req.Changelist, number)
	}
	submitted.SubmittedChange = number
	return append(ret, submitted), nil
}

var (
	_ CommandExecutor = (*MockServer)(nil)
	_ FileStatusProbe = (*MockServer)(nil)
)
