package p4

import (
	"strings"

	"github.com/groboclown/p4-golang/messages"
)

// FileAction is the pending (open) or head action of a file.
type FileAction string

const (
	ActionNone       FileAction = ""
	ActionAdd        FileAction = "add"
	ActionEdit       FileAction = "edit"
	ActionDelete     FileAction = "delete"
	ActionIntegrate  FileAction = "integrate"
	ActionBranch     FileAction = "branch"
	ActionMoveAdd    FileAction = "move/add"
	ActionMoveDelete FileAction = "move/delete"
)

// IsAdd is true for actions that create the file in the depot.
func (a FileAction) IsAdd() bool {
	return a == ActionAdd || a == ActionMoveAdd
}

func (a FileAction) IsDelete() bool {
	return a == ActionDelete || a == ActionMoveDelete
}

func (a FileAction) IsIntegrate() bool {
	return a == ActionIntegrate || a == ActionBranch
}

// FileResult is one entry of a server response. File records carry paths
// and actions; message entries carry a Message and usually nothing else.
type FileResult struct {
	DepotPath       string
	ClientPath      string
	LocalPath       string
	Action          FileAction
	HeadAction      FileAction
	HeadRev         int
	Changelist      int
	SubmittedChange int
	MovedFile       string
	Message         *messages.Message
}

// HasMessage is true for message entries.
func (r FileResult) HasMessage() bool {
	return r.Message != nil
}

// Spec returns the most specific path of the result.
func (r FileResult) Spec() FileSpec {
	switch {
	case r.DepotPath != "":
		return NewFileSpec(r.DepotPath)
	case r.ClientPath != "":
		return NewFileSpec(r.ClientPath)
	default:
		return NewFileSpec(r.LocalPath)
	}
}

func (r FileResult) String() string {
	if r.Message != nil && r.DepotPath == "" {
		return r.Message.String()
	}
	return r.Spec().String()
}

// ResultMessages joins the message text of every message entry with sep.
func ResultMessages(results []FileResult, sep string) string {
	var parts []string
	for _, r := range results {
		if r.Message != nil {
			parts = append(parts, r.Message.String())
		}
	}
	return strings.Join(parts, sep)
}

// ResultMessage merges the message entries into one classified message.
func ResultMessage(results []FileResult) *messages.Message {
	var msgs []*messages.Message
	for _, r := range results {
		msgs = append(msgs, r.Message)
	}
	return messages.Join(msgs...)
}

// ErrorFromResults returns the error and fatal messages in the results as a
// single *messages.ServerError, or nil when there are none.
func ErrorFromResults(results []FileResult) error {
	var failed []*messages.Message
	for _, r := range results {
		if r.Message.IsError() {
			failed = append(failed, r.Message)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return messages.Join(failed...).Err()
}

func resultSpecs(results []FileResult) []FileSpec {
	specs := make([]FileSpec, 0, len(results))
	for _, r := range results {
		if r.HasMessage() {
			continue
		}
		specs = append(specs, r.Spec())
	}
	return specs
}
