package develop

// A Session owns the state that persists across develop calls for one
// editing session: the sticky auto-exposure baselines, keyed by
// (path, job id), so repeated re-renders of the same image don't
// drift in brightness.
//
// The map is not synchronized. Renders for the same key are expected
// to come one at a time from the same editing session; a host that
// can issue true concurrent renders against one key must serialize
// them itself.
type Session struct {
	baselines map[string]float64
}

func NewSession() *Session {
	return &Session{baselines: map[string]float64{}}
}

func baselineKey(path, job string) string { return path + "\x00" + job }

// Baseline returns the cached auto-exposure EV for a key, if one has
// been computed.
func (s *Session) Baseline(path, job string) (float64, bool) {
	ev, ok := s.baselines[baselineKey(path, job)]
	return ev, ok
}

// SetBaseline records the auto-exposure EV for a key. Entries live
// for the life of the session; there is no eviction.
func (s *Session) SetBaseline(path, job string, ev float64) {
	s.baselines[baselineKey(path, job)] = ev
}
