package mirotest

import (
	"fmt"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// GenerateBoards returns n boards with sequential ids and an owner.
func GenerateBoards(n int) []model.Record {
	boards := make([]model.Record, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("uXjVK%05d=", i)
		boards = append(boards, model.Record{
			"id":         id,
			"type":       "board",
			"name":       fmt.Sprintf("Board %d", i),
			"createdAt":  "2024-03-01T09:00:00Z",
			"modifiedAt": "2024-11-20T16:30:00Z",
			"viewLink":   "https://miro.com/app/board/" + id,
			"owner": map[string]any{
				"id":   fmt.Sprintf("30744%05d", i),
				"name": fmt.Sprintf("Owner %d", i),
				"type": "user",
			},
		})
	}
	return boards
}

// Member builds an organization member record.
func Member(id string, active bool, license string) model.Record {
	return model.Record{
		"id":                id,
		"active":            active,
		"license":           license,
		"email":             id + "@example.com",
		"role":              "organization_internal_user",
		"type":              "organization-member",
		"adminRoles":        []any{},
		"lastActivityAt":    "2024-12-01T08:15:00Z",
		"licenseAssignedAt": "2024-01-10T12:00:00Z",
	}
}

// GenerateMembers returns full licensed active members followed by
// inactive and basic-license members.
func GenerateMembers(fullActive, fullInactive, basicActive int) []model.Record {
	members := make([]model.Record, 0, fullActive+fullInactive+basicActive)
	for i := 0; i < fullActive; i++ {
		members = append(members, Member(fmt.Sprintf("fa%04d", i), true, "full"))
	}
	for i := 0; i < fullInactive; i++ {
		members = append(members, Member(fmt.Sprintf("fi%04d", i), false, "full"))
	}
	for i := 0; i < basicActive; i++ {
		members = append(members, Member(fmt.Sprintf("ba%04d", i), true, "basic"))
	}
	return members
}
