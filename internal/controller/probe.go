package controller

// nextProbe picks the least recently used deepening probe and marks it used
// at the current turn. Never-used probes count as oldest; ties go to the
// earlier entry in Probes.
func nextProbe(s *State) Probe {
	if s.ProbeUse == nil {
		s.ProbeUse = make(map[Probe]int)
	}
	best := Probes[0]
	bestTurn := s.ProbeUse[best]
	for _, p := range Probes[1:] {
		if used := s.ProbeUse[p]; used < bestTurn {
			best, bestTurn = p, used
		}
	}
	s.ProbeUse[best] = s.Turn
	return best
}
