package parchi

// Summarize derives batch counts from per-entry results. Pure function; the
// counts always satisfy Total == Processed + Duplicates + Errors because
// every result lands in exactly one of those buckets.
func Summarize(results []ProcessResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Errors++
		case r.IsDuplicate:
			s.Duplicates++
		default:
			s.Processed++
		}
		if r.NotificationSent {
			s.NotificationsSent++
		}
	}
	return s
}
