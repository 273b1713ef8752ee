package subscription

// SelectCanonical picks the most complete row among duplicates sharing a
// correlation key: highest completeness score, ties broken by earliest
// creation time. Deterministic so repeated consolidation runs agree.
func SelectCanonical(subs []*Subscription) *Subscription {
	if len(subs) == 0 {
		return nil
	}

	best := subs[0]
	bestScore := best.Score()
	for _, candidate := range subs[1:] {
		score := candidate.Score()
		if score > bestScore || (score == bestScore && candidate.CreatedAt().Before(best.CreatedAt())) {
			best = candidate
			bestScore = score
		}
	}
	return best
}
