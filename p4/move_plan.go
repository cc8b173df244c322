package p4

import "fmt"

type sourceState int

const (
	sourceOpenForAdd sourceState = iota
	sourceOpenForDelete
	sourceNotOnServer
	sourceNotOpen
	sourceOpenForEdit
)

func (s sourceState) String() string {
	switch s {
	case sourceOpenForAdd:
		return "source-open-for-add"
	case sourceOpenForDelete:
		return "source-open-for-delete"
	case sourceNotOnServer:
		return "source-not-on-server"
	case sourceNotOpen:
		return "source-not-open"
	case sourceOpenForEdit:
		return "source-open-for-edit"
	}
	return fmt.Sprintf("sourceState(%d)", int(s))
}

type targetState int

const (
	targetOpenForAdd targetState = iota
	targetOpenForDelete
	targetOpenForEdit
	targetOpenOther
	targetNotOnServer
	targetNotOpen
)

func (s targetState) String() string {
	switch s {
	case targetOpenForAdd:
		return "target-open-for-add"
	case targetOpenForDelete:
		return "target-open-for-delete"
	case targetOpenForEdit:
		return "target-open-for-edit"
	case targetOpenOther:
		return "target-open-other"
	case targetNotOnServer:
		return "target-not-on-server"
	case targetNotOpen:
		return "target-not-open"
	}
	return fmt.Sprintf("targetState(%d)", int(s))
}

func (s targetState) isOpen() bool {
	return s == targetOpenForAdd || s == targetOpenForDelete || s == targetOpenForEdit || s == targetOpenOther
}

// classifySource picks the first matching source state, in decision table order.
func classifySource(s *OpenFileStatus) sourceState {
	switch {
	case s.HasAdd():
		return sourceOpenForAdd
	case s.HasDelete():
		return sourceOpenForDelete
	case s.IsNotOnServer():
		return sourceNotOnServer
	case !s.HasOpen():
		return sourceNotOpen
	default:
		return sourceOpenForEdit
	}
}

func classifyTarget(s *OpenFileStatus) targetState {
	switch {
	case s.HasAdd():
		return targetOpenForAdd
	case s.HasDelete():
		return targetOpenForDelete
	case s.HasEdit():
		return targetOpenForEdit
	case s.HasOpen():
		return targetOpenOther
	case s.IsNotOnServer():
		return targetNotOnServer
	default:
		return targetNotOpen
	}
}

type stepKind int

const (
	stepRevert stepKind = iota
	stepEdit
	stepAdd
	stepIntegrate
	stepDelete
	stepMove
	stepSkip
)

func (k stepKind) String() string {
	switch k {
	case stepRevert:
		return "revert"
	case stepEdit:
		return "edit"
	case stepAdd:
		return "add"
	case stepIntegrate:
		return "integrate"
	case stepDelete:
		return "delete"
	case stepMove:
		return "move"
	case stepSkip:
		return "skip"
	}
	return fmt.Sprintf("stepKind(%d)", int(k))
}

type side int

const (
	onSource side = iota
	onTarget
)

func (s side) String() string {
	if s == onSource {
		return "source"
	}
	return "target"
}

// revertSet selects which of a file's open records a revert step covers.
type revertSet int

const (
	revertNone revertSet = iota
	revertAdd
	revertDelete
	revertOpen
)

// moveStep is one primitive request in a move plan. Steps marked report
// contribute their server messages to the move's result.
type moveStep struct {
	kind    stepKind
	side    side
	reverts revertSet
	report  bool
	note    string
}

func (s moveStep) String() string {
	switch s.kind {
	case stepSkip:
		return "skip(" + s.note + ")"
	case stepIntegrate, stepMove:
		return s.kind.String()
	}
	return s.kind.String() + " " + s.side.String()
}

type movePlan struct {
	source sourceState
	target targetState
	steps  []moveStep
}

func (p movePlan) String() string {
	return fmt.Sprintf("%s/%s %v", p.source, p.target, p.steps)
}

const (
	noteAlreadyOpen = "Already open"
	noteNothingToDo = "Nothing to do"

	reasonSourceAdd    = "source open for add; add reverted, local file kept"
	reasonTargetDelete = "target open for delete; delete reverted so the target can be edited, local file kept"
	reasonSourceDelete = "source open for delete; delete reverted so the move can run, local file kept"
	reasonTargetOpen   = "target already open; reverted so it can be opened for edit, local file kept"
	reasonTargetAdd    = "target open for add; add reverted so the move can run, local file kept"
	reasonTargetMove   = "target already open; reverted before integrating onto it, local file kept"
)

func revert(on side, set revertSet, reason string) moveStep {
	return moveStep{kind: stepRevert, side: on, reverts: set, note: reason}
}

func final(kind stepKind, on side) moveStep {
	return moveStep{kind: kind, side: on, report: true}
}

func skip(note string) moveStep {
	return moveStep{kind: stepSkip, report: true, note: note}
}

// planMove is the move decision table. Every state pair maps to exactly one
// step list; the last reported steps make up the result.
func planMove(src sourceState, tgt targetState) movePlan {
	plan := movePlan{source: src, target: tgt}

	switch src {
	case sourceOpenForAdd:
		plan.steps = append(plan.steps, revert(onSource, revertAdd, reasonSourceAdd))
		switch tgt {
		case targetOpenForDelete:
			plan.steps = append(plan.steps,
				revert(onTarget, revertDelete, reasonTargetDelete),
				final(stepEdit, onTarget))
		case targetNotOnServer:
			plan.steps = append(plan.steps, final(stepAdd, onTarget))
		case targetNotOpen:
			plan.steps = append(plan.steps, final(stepEdit, onTarget))
		default:
			plan.steps = append(plan.steps, skip(noteAlreadyOpen))
		}
		return plan

	case sourceOpenForDelete:
		// the reverted source is no longer open, so it needs the edit below
		plan.steps = append(plan.steps,
			revert(onSource, revertDelete, reasonSourceDelete),
			moveStep{kind: stepEdit, side: onSource})

	case sourceNotOnServer:
		switch tgt {
		case targetOpenForAdd, targetOpenForEdit:
			plan.steps = append(plan.steps, skip(noteNothingToDo))
		case targetOpenForDelete, targetOpenOther:
			plan.steps = append(plan.steps,
				revert(onTarget, revertOpen, reasonTargetOpen),
				final(stepEdit, onTarget))
		case targetNotOnServer:
			plan.steps = append(plan.steps, final(stepAdd, onTarget))
		default:
			plan.steps = append(plan.steps, final(stepEdit, onTarget))
		}
		return plan

	case sourceNotOpen:
		plan.steps = append(plan.steps, moveStep{kind: stepEdit, side: onSource})

	case sourceOpenForEdit:
		// already in the state a move needs
	}

	switch {
	case tgt == targetOpenForAdd:
		plan.steps = append(plan.steps, revert(onTarget, revertAdd, reasonTargetAdd))
	case tgt != targetNotOnServer:
		if tgt.isOpen() {
			plan.steps = append(plan.steps, revert(onTarget, revertOpen, reasonTargetMove))
		}
		plan.steps = append(plan.steps, final(stepIntegrate, onTarget), final(stepDelete, onSource))
		return plan
	}

	plan.steps = append(plan.steps, final(stepMove, onTarget))
	return plan
}
