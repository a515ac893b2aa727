package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabiseo/internal/session"
)

var testID = session.Identity{Name: "김철수", Phone: "01012345678"}

// execute runs the root command with a config file inside a temp dir and
// returns everything written to stdout and stderr.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	verbose, configPath, serverURL = false, "", ""
	loginName, loginPhone, configForce = "", "", false
	t.Setenv("KABISEO_SERVER_URL", "")
	t.Setenv("KABISEO_CONFIG", "")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(dir, "config.yaml")))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "로그인되어 있지 않습니다")

	out, err = execute(t, dir, "login", "--name", " 김철수 ", "--phone", "010-1234-5678")
	require.NoError(t, err)
	assert.Contains(t, out, "김철수 님으로 로그인했습니다")
	assert.FileExists(t, filepath.Join(dir, "identity.yaml"))

	out, err = execute(t, dir, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "김철수 (01012345678)")

	out, err = execute(t, dir, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "로그아웃했습니다")
	assert.NoFileExists(t, filepath.Join(dir, "identity.yaml"))
}

func TestLoginRejectsInvalidPhone(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "login", "--name", "김철수", "--phone", "abc")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "identity.yaml"))
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	_, err = execute(t, dir, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, dir, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, dir, "config", "show", "--server", "wss://chat.example.com/ws")
	require.NoError(t, err)
	assert.Contains(t, out, "url: wss://chat.example.com/ws")
	assert.Contains(t, out, "max_height: 3")
}

func TestInvalidServerRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "config", "show", "--server", "http://chat.example.com")
	assert.ErrorContains(t, err, "scheme must be ws or wss")
}

func TestMalformedConfigRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [broken"), 0o644))

	_, err := execute(t, dir, "whoami")
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestChatRequiresLogin(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "chat")
	assert.ErrorContains(t, err, "not logged in")
}

func TestChatConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "config", "show")
	require.NoError(t, err)

	cc := chatConfig(testID)
	assert.Equal(t, "카비서", cc.BotName)
	assert.Equal(t, 3, cc.MaxHeight)
	assert.NotEmpty(t, cc.QuickMenu.Items)

	tc := transportConfig()
	assert.Equal(t, "ws://localhost:5000/ws", tc.URL)
	assert.Positive(t, tc.DialTimeout)
}
