package license

import "github.com/ogulcanaydogan/miro-guardian/pkg/model"

// Decide compares used licenses against the total. Only a strictly greater
// count is an overage; used == total is still within the limit.
func Decide(used, total int) model.AlertMessage {
	if used > total {
		return model.Overage{Used: used, Total: total, Excess: used - total}
	}
	return model.WithinLimit{Used: used, Total: total, Available: total - used}
}
