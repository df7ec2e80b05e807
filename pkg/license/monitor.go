package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/miro-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentOrgs bounds how many organizations RunAll checks at once.
const maxConcurrentOrgs = 4

// MemberLister fetches the full member list of an organization.
type MemberLister interface {
	ListMembers(ctx context.Context, orgID string) ([]model.Record, error)
}

// Monitor checks license usage and dispatches the resulting message.
type Monitor struct {
	members   MemberLister
	total     int
	notifiers []alerts.Notifier
	logger    *slog.Logger
}

// NewMonitor creates a license monitor for an allocation of total licenses.
func NewMonitor(members MemberLister, total int, notifiers []alerts.Notifier, logger *slog.Logger) *Monitor {
	return &Monitor{
		members:   members,
		total:     total,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Check fetches the organization's members and decides whether the
// active full-license count exceeds the allocation.
func (m *Monitor) Check(ctx context.Context, orgID string) (*model.LicenseReport, error) {
	if m.total < 0 {
		return nil, &model.PreconditionError{Field: "license total", Reason: "must not be negative"}
	}

	members, err := m.members.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}

	used := FilterCount(members, ActiveFullLicense)
	msg := Decide(used, m.total)

	report := &model.LicenseReport{
		OrgID:     orgID,
		Members:   len(members),
		Aggregate: model.AggregateResult{Count: used, Threshold: m.total},
		Message:   msg,
	}

	switch v := msg.(type) {
	case model.Overage:
		m.logger.Warn("license overage",
			"org", orgID,
			"used", v.Used,
			"total", v.Total,
			"excess", v.Excess,
		)
	case model.WithinLimit:
		m.logger.Info("licenses within limit",
			"org", orgID,
			"used", v.Used,
			"total", v.Total,
			"available", v.Available,
		)
	}

	return report, nil
}

// Notify delivers a report to every notifier. Every notifier is attempted;
// the returned error joins all delivery failures.
func (m *Monitor) Notify(ctx context.Context, report *model.LicenseReport) error {
	alert := alerts.NewAlert(report.OrgID, report.Message)

	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, alert); err != nil {
			m.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"org", report.OrgID,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("alert sent", "notifier", notifier.Name(), "org", report.OrgID)
	}
	return errors.Join(errs...)
}

// Run checks one organization and notifies.
func (m *Monitor) Run(ctx context.Context, orgID string) (*model.LicenseReport, error) {
	report, err := m.Check(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := m.Notify(ctx, report); err != nil {
		return report, fmt.Errorf("deliver alert: %w", err)
	}
	return report, nil
}

// RunAll runs independent checks for several organizations concurrently.
// Reports are returned in the order of orgIDs; an organization that could
// not be checked leaves a nil entry. All failures are joined.
func (m *Monitor) RunAll(ctx context.Context, orgIDs []string) ([]*model.LicenseReport, error) {
	reports := make([]*model.LicenseReport, len(orgIDs))
	errs := make([]error, len(orgIDs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentOrgs)
	for i, orgID := range orgIDs {
		g.Go(func() error {
			report, err := m.Run(ctx, orgID)
			reports[i] = report
			if err != nil {
				errs[i] = fmt.Errorf("org %s: %w", orgID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}
