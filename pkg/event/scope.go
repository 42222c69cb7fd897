package event

import "fmt"

// ResolveTargets selects the occurrences an update with the given scope applies to.
// series must hold every occurrence sharing target's series id, ordered by StartsAt;
// it is ignored for standalone events and for ScopeSingle.
func ResolveTargets(target Event, scope Scope, series []Event) []Event {
	if !target.IsRecurring() {
		return []Event{target}
	}

	switch scope {
	case ScopeFuture:
		selected := make([]Event, 0, len(series))
		for _, occurrence := range series {
			if !occurrence.StartsAt.Before(target.StartsAt) {
				selected = append(selected, occurrence)
			}
		}
		return selected
	case ScopeAll:
		selected := make([]Event, len(series))
		copy(selected, series)
		return selected
	default:
		return []Event{target}
	}
}

// ApplyPatch merges patch into every occurrence. It fails without modifying
// anything when a merged occurrence would end before it starts.
func ApplyPatch(occurrences []Event, patch FieldPatch) ([]Event, error) {
	patched := make([]Event, 0, len(occurrences))
	for _, occurrence := range occurrences {
		merged := patch.ApplyTo(occurrence)
		if !merged.EndsAt.After(merged.StartsAt) {
			return nil, fmt.Errorf("%w: occurrence %s would span %s to %s",
				ErrInvalidTimeRange, occurrence.Id, merged.StartsAt, merged.EndsAt)
		}
		patched = append(patched, merged)
	}
	return patched, nil
}
