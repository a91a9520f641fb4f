package schedule

// OverrideMap maps a session id to the yyyy-mm-dd date it was moved to.
// A key present means the session's effective date is the value, whatever
// its computed date is. Mutators return a new map and leave the receiver untouched.
type OverrideMap map[string]string

// Clone returns an independent copy; a nil map clones to an empty map.
func (m OverrideMap) Clone() OverrideMap {
	out := make(OverrideMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m OverrideMap) Has(sessionID string) bool {
	_, ok := m[sessionID]
	return ok
}

// Set returns a copy with sessionID moved to date.
func (m OverrideMap) Set(sessionID, date string) OverrideMap {
	out := m.Clone()
	out[sessionID] = date
	return out
}

// Clear returns a copy without sessionID.
func (m OverrideMap) Clear(sessionID string) OverrideMap {
	out := m.Clone()
	delete(out, sessionID)
	return out
}

// ClearBatch returns a copy without any of sessionIDs.
func (m OverrideMap) ClearBatch(sessionIDs []string) OverrideMap {
	out := m.Clone()
	for _, id := range sessionIDs {
		delete(out, id)
	}
	return out
}

// Equal reports whether both maps hold the same keys and values.
func (m OverrideMap) Equal(other OverrideMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
