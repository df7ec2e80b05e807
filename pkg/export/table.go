package export

import (
	"strings"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// NotAvailable fills member timestamps the API did not return.
const NotAvailable = "N/A"

// Column is one field of an exported table.
type Column struct {
	Header string
	Field  string // column name in the SQLite sink
	Value  func(model.Record) string
}

// Table is a fixed-order tabular projection of fetched records.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]string
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}

// BoardColumns is the board export layout.
var BoardColumns = []Column{
	{Header: "Board ID", Field: "board_id", Value: field("id")},
	{Header: "Name", Field: "name", Value: field("name")},
	{Header: "Owner", Field: "owner", Value: func(r model.Record) string { return r.Nested("owner").String("name") }},
	{Header: "Created At", Field: "created_at", Value: field("createdAt")},
	{Header: "Modified At", Field: "modified_at", Value: field("modifiedAt")},
	{Header: "Link", Field: "link", Value: field("viewLink")},
}

// MemberColumns is the organization member export layout.
var MemberColumns = []Column{
	{Header: "id", Field: "member_id", Value: field("id")},
	{Header: "active", Field: "active", Value: field("active")},
	{Header: "adminRoles", Field: "admin_roles", Value: func(r model.Record) string { return strings.Join(r.Strings("adminRoles"), ", ") }},
	{Header: "email", Field: "email", Value: field("email")},
	{Header: "lastActivityAt", Field: "last_activity_at", Value: fieldOr("lastActivityAt", NotAvailable)},
	{Header: "license", Field: "license", Value: field("license")},
	{Header: "licenseAssignedAt", Field: "license_assigned_at", Value: fieldOr("licenseAssignedAt", NotAvailable)},
	{Header: "role", Field: "role", Value: field("role")},
	{Header: "type", Field: "type", Value: field("type")},
}

// BoardsTable projects boards onto BoardColumns.
func BoardsTable(records []model.Record) Table {
	return project("boards", BoardColumns, records)
}

// MembersTable projects members onto MemberColumns.
func MembersTable(records []model.Record) Table {
	return project("members", MemberColumns, records)
}

func project(name string, columns []Column, records []model.Record) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = c.Value(r)
		}
		rows = append(rows, row)
	}
	return Table{Name: name, Columns: columns, Rows: rows}
}

func field(key string) func(model.Record) string {
	return func(r model.Record) string { return r.String(key) }
}

func fieldOr(key, def string) func(model.Record) string {
	return func(r model.Record) string { return r.StringOr(key, def) }
}
