package license

import "github.com/ogulcanaydogan/miro-guardian/pkg/model"

// FullLicense is the license value that consumes a paid seat.
const FullLicense = "full"

// Predicate selects records for aggregation.
type Predicate func(model.Record) bool

// ActiveFullLicense matches members that are active and hold a full license.
func ActiveFullLicense(r model.Record) bool {
	return r.Bool("active") && r.String("license") == FullLicense
}

// FilterCount returns how many records satisfy pred.
func FilterCount(records []model.Record, pred Predicate) int {
	n := 0
	for _, r := range records {
		if pred(r) {
			n++
		}
	}
	return n
}

// Filter returns the records that satisfy pred, in their original order.
func Filter(records []model.Record, pred Predicate) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
