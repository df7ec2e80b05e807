package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ogulcanaydogan/miro-guardian/internal/mirotest"
	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	keyring "github.com/zalando/go-keyring"
)

// resetFlags restores every flag to its default so commands can run again.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setContext binds ctx to every command. Cobra only copies the root
// context to a subcommand whose context is still nil.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, t.Context(), stdin, args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	setContext(rootCmd, ctx)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// setupEnv points the CLI at a fake API and returns a scratch directory.
func setupEnv(t *testing.T, srv *mirotest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("MIROGUARD_MIRO_BASE_URL", srv.URL())
	t.Setenv("MIROGUARD_LOGGING_LEVEL", "error")
	t.Setenv("MIRO_API_TOKEN", "secret")
	t.Setenv("MIRO_ORG_ID", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")
	return dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "miroguard version dev\n", out)
}

func TestBoardsExport_CSV(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetBoards(mirotest.GenerateBoards(112))
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "boards.csv")

	out, err := execute(t, "", "boards", "export", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 112 boards to "+path)

	rows := readCSV(t, path)
	require.Len(t, rows, 113)
	assert.Equal(t, "Board ID", rows[0][0])
	assert.Equal(t, "Owner 112", rows[112][2])
	assert.Equal(t, 3, srv.Requests(mirotest.Boards))
}

func TestBoardsExport_Empty(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "boards.csv")

	out, err := execute(t, "", "boards", "export", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, "No boards found.\n", out)
	assert.NoFileExists(t, path)
}

func TestBoardsExport_TokenFile(t *testing.T) {
	srv := mirotest.NewServer(t, "from-file")
	srv.SetBoards(mirotest.GenerateBoards(2))
	dir := setupEnv(t, srv)
	tokenPath := filepath.Join(dir, "token.txt")
	require.NoError(t, os.WriteFile(tokenPath, []byte("from-file\n"), 0o600))

	_, err := execute(t, "", "boards", "export", "-o", filepath.Join(dir, "b.csv"), "--token-file", tokenPath)
	require.NoError(t, err)
}

func TestBoardsExport_MissingCredential(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	setupEnv(t, srv)
	t.Setenv("MIRO_API_TOKEN", "")

	_, err := execute(t, "", "boards", "export")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "load credential: "))
	var pe *model.PreconditionError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, srv.Requests(mirotest.Boards))
}

func TestBoardsExport_FetchFailureWritesNothing(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetBoards(mirotest.GenerateBoards(112))
	srv.FailPage(mirotest.Boards, 3, http.StatusInternalServerError, "boom")
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "boards.csv")

	_, err := execute(t, "", "boards", "export", "-o", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch boards")
	assert.NoFileExists(t, path)
}

func TestMembersExport_JSON(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(3, 1, 1))
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "members.json")

	out, err := execute(t, "", "members", "export", "--org", "org1", "--format", "json", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 5 members")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 5)
	assert.Equal(t, "full", rows[0]["license"])
}

func TestMembersExport_DefaultFileFollowsFormat(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(1, 0, 0))
	dir := setupEnv(t, srv)
	t.Setenv("MIROGUARD_EXPORT_MEMBERS_FILE", filepath.Join(dir, "miro_users_export.csv"))
	t.Setenv("MIRO_ORG_ID", "org1")

	_, err := execute(t, "", "members", "export", "--format", "yaml")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "miro_users_export.yaml"))
}

func TestMembersExport_Empty(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", nil)
	setupEnv(t, srv)

	out, err := execute(t, "", "members", "export", "--org", "org1")
	require.NoError(t, err)
	assert.Equal(t, "No members data fetched.\n", out)
}

func TestMembersExport_SQLite(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(4, 0, 0))
	dir := setupEnv(t, srv)
	dbPath := filepath.Join(dir, "export.db")
	t.Setenv("MIROGUARD_EXPORT_SQLITE_PATH", dbPath)

	out, err := execute(t, "", "members", "export", "--org", "org1", "-f", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, dbPath)
	assert.FileExists(t, dbPath)
}

func TestMembersExport_UnknownFormat(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	setupEnv(t, srv)

	_, err := execute(t, "", "members", "export", "--org", "org1", "-f", "xlsx")
	assert.Error(t, err)
	assert.Equal(t, 0, srv.Requests(mirotest.Members))
}

func TestLicenseCheck_DryRun(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(601, 10, 10))
	setupEnv(t, srv)

	out, err := execute(t, "", "license", "check", "--org", "org1", "--total", "600", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, ":rotating_light::miro: *Miro License Alert* :miro::rotating_light:\n"+
		"Organization: org1\n"+
		"Used Licenses: 601\n"+
		"Total Licenses: 600\n"+
		"Overage: 1\n"+
		"*Immediate action required to resolve the overage.*\n", out)
}

func TestLicenseCheck_PostsToSlack(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(10, 0, 0))
	setupEnv(t, srv)

	var mu sync.Mutex
	var texts []string
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		texts = append(texts, payload["text"])
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer slack.Close()
	t.Setenv("SLACK_WEBHOOK_URL", slack.URL)
	t.Setenv("MIRO_ORG_ID", "org1")

	_, err := execute(t, "", "license", "check")
	require.NoError(t, err)

	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Used Licenses: 10\nTotal Licenses: 600\nAvailable Licenses: 590")
}

func TestLicenseCheck_SlackFailure(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(1, 0, 0))
	setupEnv(t, srv)

	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer slack.Close()
	t.Setenv("SLACK_WEBHOOK_URL", slack.URL)

	_, err := execute(t, "", "license", "check", "--org", "org1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliver alert")
	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusForbidden, de.StatusCode)
}

func TestLicenseCheck_MultipleOrgs(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org-a", mirotest.GenerateMembers(2, 0, 0))
	srv.SetMembers("org-b", mirotest.GenerateMembers(5, 0, 0))
	setupEnv(t, srv)

	out, err := execute(t, "", "license", "check", "--org", "org-a", "--org", "org-b", "--total", "3", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Organization: org-a\nUsed Licenses: 2")
	assert.Contains(t, out, "Organization: org-b\nUsed Licenses: 5")
	assert.Contains(t, out, "Overage: 2")
}

func TestLicenseCheck_NegativeTotal(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	setupEnv(t, srv)

	_, err := execute(t, "", "license", "check", "--org", "org1", "--total", "-1")
	var pe *model.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, srv.Requests(mirotest.Members))
}

func TestAuth_SetAndDelete(t *testing.T) {
	keyring.MockInit()
	srv := mirotest.NewServer(t, "kr-token")
	srv.SetMembers("org1", mirotest.GenerateMembers(1, 0, 0))
	setupEnv(t, srv)
	t.Setenv("MIROGUARD_CREDENTIALS_SOURCE", "keyring")

	out, err := execute(t, "kr-token\n", "auth", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "Token stored in keyring (miroguard/default)")

	got, err := keyring.Get("miroguard", "default")
	require.NoError(t, err)
	assert.Equal(t, "kr-token", got)

	_, err = execute(t, "", "license", "check", "--org", "org1", "--dry-run")
	require.NoError(t, err)

	_, err = execute(t, "", "auth", "delete")
	require.NoError(t, err)
	_, err = keyring.Get("miroguard", "default")
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestAuth_SetFromFile(t *testing.T) {
	keyring.MockInit()
	srv := mirotest.NewServer(t, "secret")
	dir := setupEnv(t, srv)
	path := filepath.Join(dir, "token.txt")
	require.NoError(t, os.WriteFile(path, []byte("file-token"), 0o600))

	_, err := execute(t, "", "auth", "set", "--from-file", path)
	require.NoError(t, err)

	got, err := keyring.Get("miroguard", "default")
	require.NoError(t, err)
	assert.Equal(t, "file-token", got)
}

func TestAuth_SetEmpty(t *testing.T) {
	keyring.MockInit()
	srv := mirotest.NewServer(t, "secret")
	setupEnv(t, srv)

	_, err := execute(t, "  \n", "auth", "set")
	var pe *model.PreconditionError
	assert.ErrorAs(t, err, &pe)
}

func TestLicenseCheck_RequiresAlertSink(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(700, 0, 0))
	setupEnv(t, srv)

	out, err := execute(t, "", "license", "check", "--org", "org1", "--total", "600")
	var pe *model.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "alerts.slack.webhook_url", pe.Field)
	assert.Empty(t, out)
	assert.Equal(t, 0, srv.Requests(mirotest.Members))
}

func TestLicenseCheck_NoSinkEnabled(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(1, 0, 0))
	setupEnv(t, srv)
	t.Setenv("MIROGUARD_ALERTS_SLACK_ENABLED", "false")

	_, err := execute(t, "", "license", "check", "--org", "org1")
	var pe *model.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "alerts", pe.Field)
	assert.Equal(t, 0, srv.Requests(mirotest.Members))
}

func TestCommandsRunRepeatedly(t *testing.T) {
	srv := mirotest.NewServer(t, "secret")
	srv.SetMembers("org1", mirotest.GenerateMembers(3, 0, 0))
	setupEnv(t, srv)

	for range 3 {
		ctx, cancel := context.WithCancel(t.Context())
		out, err := executeContext(t, ctx, "", "license", "check", "--org", "org1", "--dry-run")
		cancel()
		require.NoError(t, err)
		assert.Contains(t, out, "Used Licenses: 3")
	}
	assert.Equal(t, 3, srv.Requests(mirotest.Members))
}
