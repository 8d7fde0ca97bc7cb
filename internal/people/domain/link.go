package domain

// LinkOutcome is the result of applying an identity to an employee.
type LinkOutcome int

const (
	// LinkApplied moved the employee from unlinked to linked.
	LinkApplied LinkOutcome = iota + 1
	// LinkUnchanged means the same identity was already bound.
	LinkUnchanged
	// LinkConflict means a different identity is bound; nothing changes.
	LinkConflict
)

func (o LinkOutcome) String() string {
	switch o {
	case LinkApplied:
		return "linked"
	case LinkUnchanged:
		return "unchanged"
	case LinkConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// DecideLink evaluates the link state machine against the current binding.
func DecideLink(current *string, incoming string) LinkOutcome {
	switch {
	case current == nil:
		return LinkApplied
	case *current == incoming:
		return LinkUnchanged
	default:
		return LinkConflict
	}
}
