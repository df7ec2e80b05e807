package license_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/ogulcanaydogan/miro-guardian/internal/mirotest"
	"github.com/ogulcanaydogan/miro-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/miro-guardian/pkg/license"
	"github.com/ogulcanaydogan/miro-guardian/pkg/miro"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/ogulcanaydogan/miro-guardian/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	name   string
	err    error
	alerts []alerts.Alert
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Send(_ context.Context, a alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestMonitor(t *testing.T, srv *mirotest.Server, total int, notifiers ...alerts.Notifier) *license.Monitor {
	t.Helper()
	logger := testLogger()
	client, err := miro.NewClient(srv.URL(), "secret", 0, pagination.NewHTTPSource(), pagination.NewFetcher(0, logger), logger)
	require.NoError(t, err)
	return license.NewMonitor(client, total, notifiers, logger)
}

func TestMonitor_Check_Overage(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(601, 40, 25))

	report, err := newTestMonitor(t, srv, 600).Check(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, "org1", report.OrgID)
	assert.Equal(t, 666, report.Members)
	assert.Equal(t, model.AggregateResult{Count: 601, Threshold: 600}, report.Aggregate)
	assert.Equal(t, model.Overage{Used: 601, Total: 600, Excess: 1}, report.Message)
}

func TestMonitor_Check_AtLimit(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(600, 3, 3))

	report, err := newTestMonitor(t, srv, 600).Check(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, model.WithinLimit{Used: 600, Total: 600, Available: 0}, report.Message)
}

func TestMonitor_Check_FetchErrorPropagates(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(300, 0, 0))
	srv.FailPage(mirotest.Members, 2, http.StatusBadGateway, "upstream")
	n := &recordingNotifier{name: "rec"}

	_, err := newTestMonitor(t, srv, 600, n).Run(context.Background(), "org1")
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Empty(t, n.alerts)
}

func TestMonitor_Check_NegativeTotal(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")

	_, err := newTestMonitor(t, srv, -1).Check(context.Background(), "org1")
	var pe *model.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, srv.Requests(mirotest.Members))
}

func TestMonitor_Run_PostsSlackText(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(10, 1, 1))

	var received map[string]any
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer slack.Close()

	report, err := newTestMonitor(t, srv, 600, alerts.NewSlackNotifier(slack.URL, "")).Run(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, model.WithinLimit{Used: 10, Total: 600, Available: 590}, report.Message)
	assert.Equal(t, alerts.Render("org1", report.Message), received["text"])
}

func TestMonitor_Notify_AllNotifiersAttempted(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	failing := &recordingNotifier{name: "failing", err: &model.DeliveryError{Sink: "failing", StatusCode: 500}}
	ok := &recordingNotifier{name: "ok"}
	m := newTestMonitor(t, srv, 600, failing, ok)

	report := &model.LicenseReport{OrgID: "org1", Message: model.Overage{Used: 700, Total: 600, Excess: 100}}
	err := m.Notify(context.Background(), report)

	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Len(t, failing.alerts, 1)
	require.Len(t, ok.alerts, 1)
	assert.Equal(t, alerts.LevelOverage, ok.alerts[0].Level)
}

func TestMonitor_Run_DeliveryFailureSurfaced(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(1, 0, 0))
	failing := &recordingNotifier{name: "failing", err: errors.New("boom")}

	report, err := newTestMonitor(t, srv, 600, failing).Run(context.Background(), "org1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliver alert")
	assert.NotNil(t, report)
}

func TestMonitor_RunAll(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org-a", mirotest.GenerateMembers(5, 0, 0))
	srv.SetMembers("org-b", mirotest.GenerateMembers(12, 0, 0))
	srv.SetMembers("org-c", mirotest.GenerateMembers(0, 4, 4))
	n := &recordingNotifier{name: "rec"}

	reports, err := newTestMonitor(t, srv, 10, n).RunAll(context.Background(), []string{"org-a", "org-b", "org-c", "org-missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org org-missing")

	require.Len(t, reports, 4)
	assert.Equal(t, model.WithinLimit{Used: 5, Total: 10, Available: 5}, reports[0].Message)
	assert.Equal(t, model.Overage{Used: 12, Total: 10, Excess: 2}, reports[1].Message)
	assert.Equal(t, model.WithinLimit{Used: 0, Total: 10, Available: 10}, reports[2].Message)
	assert.Nil(t, reports[3])
	assert.Len(t, n.alerts, 3)
}
