package p4

import (
	"fmt"
	"strings"

	"github.com/groboclown/p4-golang/messages"
)

// OpenFileStatus sorts fstat-style probe results by their open action.
// It is computed per call and never cached.
type OpenFileStatus struct {
	add       []FileResult
	edit      []FileResult
	delete    []FileResult
	integrate []FileResult
	open      []FileResult
	skipped   []FileResult
	moveMap   map[string]string
	messages  []*messages.Message
	withMsg   []FileResult
	records   int
}

// NewOpenFileStatus sorts the probe results. A record with no open action
// that is deleted at head counts as not on the server.
func NewOpenFileStatus(results []FileResult) *OpenFileStatus {
	s := &OpenFileStatus{moveMap: make(map[string]string)}
	for _, r := range results {
		if r.Message != nil {
			s.messages = append(s.messages, r.Message)
			if r.DepotPath != "" || r.ClientPath != "" || r.LocalPath != "" {
				s.withMsg = append(s.withMsg, r)
			}
			continue
		}
		if r.Action == ActionNone && r.HeadAction.IsDelete() {
			continue
		}
		s.records++

		switch {
		case r.Action == ActionNone:
			s.skipped = append(s.skipped, r)
			continue
		case r.Action.IsAdd():
			s.add = append(s.add, r)
			if r.Action == ActionMoveAdd && r.MovedFile != "" {
				s.moveMap[r.MovedFile] = r.DepotPath
			}
		case r.Action == ActionEdit:
			s.edit = append(s.edit, r)
		case r.Action.IsDelete():
			s.delete = append(s.delete, r)
		case r.Action.IsIntegrate():
			s.integrate = append(s.integrate, r)
		}
		s.open = append(s.open, r)
	}
	return s
}

func (s *OpenFileStatus) HasAdd() bool       { return len(s.add) > 0 }
func (s *OpenFileStatus) HasEdit() bool      { return len(s.edit) > 0 }
func (s *OpenFileStatus) HasDelete() bool    { return len(s.delete) > 0 }
func (s *OpenFileStatus) HasIntegrate() bool { return len(s.integrate) > 0 }

// HasOpen is true when any file is open, whatever the action.
func (s *OpenFileStatus) HasOpen() bool { return len(s.open) > 0 }

func (s *OpenFileStatus) HasAddOrEdit() bool { return s.HasAdd() || s.HasEdit() }

// IsNotOnServer is true when the probe returned no file records.
func (s *OpenFileStatus) IsNotOnServer() bool { return s.records == 0 }

func (s *OpenFileStatus) Add() []FileSpec       { return resultSpecs(s.add) }
func (s *OpenFileStatus) Edit() []FileSpec      { return resultSpecs(s.edit) }
func (s *OpenFileStatus) Delete() []FileSpec    { return resultSpecs(s.delete) }
func (s *OpenFileStatus) Integrate() []FileSpec { return resultSpecs(s.integrate) }
func (s *OpenFileStatus) Open() []FileSpec      { return resultSpecs(s.open) }

// Skipped returns the files known to the server but not open.
func (s *OpenFileStatus) Skipped() []FileSpec { return resultSpecs(s.skipped) }

// OpenedCount is the number of open files.
func (s *OpenFileStatus) OpenedCount() int { return len(s.open) }

// MoveMap maps the source depot path of a pending move to its target.
func (s *OpenFileStatus) MoveMap() map[string]string { return s.moveMap }

func (s *OpenFileStatus) Messages() []*messages.Message { return s.messages }

// FilesWithMessages returns the entries that carry both a path and a message.
func (s *OpenFileStatus) FilesWithMessages() []FileResult { return s.withMsg }

// Err returns the probe's error or fatal messages.
func (s *OpenFileStatus) Err() error {
	return messages.Join(s.messages...).Err()
}

func (s *OpenFileStatus) String() string {
	var parts []string
	if s.IsNotOnServer() {
		parts = append(parts, "not-on-server")
	}
	if s.HasAdd() {
		parts = append(parts, fmt.Sprintf("add:%d", len(s.add)))
	}
	if s.HasEdit() {
		parts = append(parts, fmt.Sprintf("edit:%d", len(s.edit)))
	}
	if s.HasDelete() {
		parts = append(parts, fmt.Sprintf("delete:%d", len(s.delete)))
	}
	if s.HasIntegrate() {
		parts = append(parts, fmt.Sprintf("integrate:%d", len(s.integrate)))
	}
	if len(s.skipped) > 0 {
		parts = append(parts, fmt.Sprintf("not-open:%d", len(s.skipped)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
