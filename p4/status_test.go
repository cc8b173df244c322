package p4

import (
	"testing"

	"github.com/groboclown/p4-golang/messages"
)

func TestOpenFileStatusNotOnServer(t *testing.T) {
	status := NewOpenFileStatus([]FileResult{noSuchFile("//depot/abc.txt")})

	if !status.IsNotOnServer() {
		t.Fatal("Expected file to be reported as not on server")
	}
	if status.HasOpen() || status.OpenedCount() != 0 {
		t.Errorf("Expected no open files, got %d", status.OpenedCount())
	}
	if len(status.Messages()) != 1 || !status.Messages()[0].IsWarning() {
		t.Errorf("Expected one warning message, got %v", status.Messages())
	}
	if len(status.FilesWithMessages()) != 0 {
		t.Errorf("Expected no files with messages, got %v", status.FilesWithMessages())
	}
	if err := status.Err(); err != nil {
		t.Errorf("A missing file is not an error: %v", err)
	}
}

func TestOpenFileStatusSorting(t *testing.T) {
	status := NewOpenFileStatus([]FileResult{
		{DepotPath: "//depot/add.txt", Action: ActionAdd},
		{DepotPath: "//depot/moved.txt", Action: ActionMoveAdd, MovedFile: "//depot/orig.txt"},
		{DepotPath: "//depot/orig.txt", HeadRev: 3, Action: ActionMoveDelete},
		{DepotPath: "//depot/edit.txt", HeadRev: 2, Action: ActionEdit},
		{DepotPath: "//depot/branch.txt", Action: ActionBranch},
		{DepotPath: "//depot/idle.txt", HeadRev: 1, HeadAction: ActionAdd},
	})

	if got := len(status.Add()); got != 2 {
		t.Errorf("Expected 2 add files, got %d", got)
	}
	if got := len(status.Delete()); got != 1 {
		t.Errorf("Expected 1 delete file, got %d", got)
	}
	if got := len(status.Edit()); got != 1 {
		t.Errorf("Expected 1 edit file, got %d", got)
	}
	if got := len(status.Integrate()); got != 1 {
		t.Errorf("Expected 1 integrate file, got %d", got)
	}
	if got := status.OpenedCount(); got != 5 {
		t.Errorf("Expected 5 open files, got %d", got)
	}
	if got := status.Skipped(); len(got) != 1 || got[0].Path != "//depot/idle.txt" {
		t.Errorf("Expected idle.txt to be skipped, got %v", got)
	}
	if got := status.MoveMap()["//depot/orig.txt"]; got != "//depot/moved.txt" {
		t.Errorf("Expected move map to point orig.txt at moved.txt, got %q", got)
	}
	if status.IsNotOnServer() {
		t.Error("Expected files to be on the server")
	}
}

func TestOpenFileStatusError(t *testing.T) {
	status := NewOpenFileStatus([]FileResult{
		{Message: messages.Error(messages.GenericProtect, "no permission")},
	})
	if err := status.Err(); err == nil || err.Error() != "no permission" {
		t.Errorf("Expected the server error, got %v", err)
	}
}
