package domain

// LatestEvent returns the event with the greatest timestamp. When several
// events share that timestamp the first one in the slice wins. ok is false
// for an empty slice.
func LatestEvent(events []Event) (latest Event, ok bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	latest = events[0]
	for _, e := range events[1:] {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	return latest, true
}

// DetectChange compares the most recent stored event with the most recent
// fresh event. A first observation (no stored events) is always a change;
// otherwise only the status text or the status code count, location and
// timestamp drift do not.
//
// fresh must not be empty.
func DetectChange(stored, fresh []Event) (changed bool, latest Event) {
	latest, _ = LatestEvent(fresh)

	previous, ok := LatestEvent(stored)
	if !ok {
		return true, latest
	}

	return previous.Status != latest.Status || previous.StatusCode != latest.StatusCode, latest
}
