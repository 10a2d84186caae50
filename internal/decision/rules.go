package decision

// Decide reduces the two final gate outcomes to a decision. Liveness is checked
// before duplication.
// This is pure domain logic - no I/O, no side effects.
func Decide(isLive, isDuplicate bool) Decision {
	if !isLive {
		return For(LivenessFailed)
	}
	if isDuplicate {
		return For(DuplicateFound)
	}
	return For(Approved)
}
