package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerbrinkmann/couchdb-rest-api/internal/config"
	"github.com/rogerbrinkmann/couchdb-rest-api/internal/couchtest"
)

// execute runs rootCmd with args and returns everything it printed.
// Flag values survive between runs of the same command tree, so they are
// reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	for _, env := range []string{config.EnvURL, config.EnvUser, config.EnvPassword, config.EnvTimeout} {
		t.Setenv(env, "")
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// fake starts a fake CouchDB with user admin/secret.
func fake(t *testing.T, opts ...couchtest.Option) *couchtest.Server {
	t.Helper()
	return couchtest.New(t, append([]couchtest.Option{couchtest.WithUser("admin", "secret")}, opts...)...)
}

// against appends the flags that point couchctl at fake s.
func against(t *testing.T, s *couchtest.Server, args ...string) []string {
	t.Helper()
	return append(args,
		"--config", filepath.Join(t.TempDir(), "config.toml"),
		"--url", s.URL,
		"--user", "admin",
		"--password", "secret",
	)
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "couchctl", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"info", "tasks", "cluster", "db", "doc", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	for _, name := range []string{"config", "url", "user", "password", "timeout", "rate", "verbose"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
	assert.Equal(t, "u", flags.Lookup("user").Shorthand)
	assert.Equal(t, "p", flags.Lookup("password").Shorthand)
	assert.Equal(t, "v", flags.Lookup("verbose").Shorthand)
}

func TestConnect_RateLimited(t *testing.T) {
	s := fake(t)

	out, err := execute(t, against(t, s, "info", "--rate", "1000")...)

	require.NoError(t, err)
	assert.Contains(t, out, `"couchdb": "Welcome"`)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := execute(t, "info", "--config", filepath.Join(t.TempDir(), "config.toml"), "--url", "ftp://localhost")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
}

func TestConnect_WrongPassword(t *testing.T) {
	s := fake(t)

	_, err := execute(t, "info",
		"--config", filepath.Join(t.TempDir(), "config.toml"),
		"--url", s.URL, "--user", "admin", "--password", "wrong")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to "+s.URL)
}

func TestConnect_EnvironmentOverridesFile(t *testing.T) {
	s := fake(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.URL = "http://127.0.0.1:1"
	require.NoError(t, cfg.Save(path))

	resetFlags(rootCmd)
	t.Setenv(config.EnvURL, s.URL)
	t.Setenv(config.EnvUser, "admin")
	t.Setenv(config.EnvPassword, "secret")
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"info", "--config", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"version": "`+couchtest.Version+`"`)
}
