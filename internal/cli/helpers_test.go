package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/config"
	"github.com/roach88/basket/internal/marketplace"
)

const testToken = "tok-1234"

// cliEnv is a temp database, a config file and a marketplace backend.
type cliEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
	dbPath  string
	apiURL  string
	backend *marketplace.Server
	userID  int
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvDB, "")

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: error\nredirect_delay: 0s\n"), 0o644))

	backend := marketplace.New(marketplace.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	userID := backend.AddUser(testToken, api.User{Name: "Ada", Email: "ada@example.com"})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	return &cliEnv{
		t:       t,
		dir:     dir,
		cfgPath: cfgPath,
		dbPath:  filepath.Join(dir, "data", "basket.db"),
		apiURL:  srv.URL,
		backend: backend,
		userID:  userID,
	}
}

// run executes the root command against the env without a token.
func (e *cliEnv) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errBuf)
	full := append([]string{"--config", e.cfgPath, "--db", e.dbPath, "--api", e.apiURL}, args...)
	cmd.SetArgs(full)
	err = cmd.Execute()
	return out.String(), errBuf.String(), err
}

// runAuth executes the root command with the registered user's token.
func (e *cliEnv) runAuth(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	return e.run(append([]string{"--token", testToken}, args...)...)
}

// mustRun fails the test if the command fails and returns stdout.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(args...)
	require.NoError(e.t, err, "stdout: %s\nstderr: %s", out, stderr)
	return out
}

func (e *cliEnv) mustRunAuth(args ...string) string {
	e.t.Helper()
	return e.mustRun(append([]string{"--token", testToken}, args...)...)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
