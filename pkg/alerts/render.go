package alerts

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// Render formats a license decision as a Slack mrkdwn message.
func Render(orgID string, msg model.AlertMessage) string {
	var b strings.Builder
	switch m := msg.(type) {
	case model.Overage:
		b.WriteString(":rotating_light::miro: *Miro License Alert* :miro::rotating_light:\n")
		writeOrg(&b, orgID)
		fmt.Fprintf(&b, "Used Licenses: %d\n", m.Used)
		fmt.Fprintf(&b, "Total Licenses: %d\n", m.Total)
		fmt.Fprintf(&b, "Overage: %d\n", m.Excess)
		b.WriteString("*Immediate action required to resolve the overage.*")
	case model.WithinLimit:
		b.WriteString(":miro: *Miro License Report* :miro:\n")
		writeOrg(&b, orgID)
		fmt.Fprintf(&b, "Used Licenses: %d\n", m.Used)
		fmt.Fprintf(&b, "Total Licenses: %d\n", m.Total)
		fmt.Fprintf(&b, "Available Licenses: %d\n", m.Available)
		b.WriteString("*All licenses are within the allocated limit.*")
	}
	return b.String()
}

func writeOrg(b *strings.Builder, orgID string) {
	if orgID != "" {
		fmt.Fprintf(b, "Organization: %s\n", orgID)
	}
}
