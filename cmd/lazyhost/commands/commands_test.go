package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lazyhost/pkg/runtime"
)

const membersConfig = `host: cli-test
shutdown_timeout: 5s
logging:
  level: ERROR
members:
  - name: scratch
    kind: tempdir
  - name: kv
    kind: badger
    warm: true
    options:
      in_memory: true
  - name: web
    kind: http
    cleanup:
      method: none
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	t.Cleanup(func() {
		root.SetOut(nil)
		root.SetErr(nil)
		root.SetArgs(nil)
	})
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = execute(t, "version", "--short=false")
	require.NoError(t, err)
	assert.Contains(t, out, "lazyhost "+Version)
	assert.Contains(t, out, "Go version:")
}

func TestMembersCommand(t *testing.T) {
	path := writeConfig(t, membersConfig)

	t.Run("Cold", func(t *testing.T) {
		out, err := execute(t, "members", "--config", path, "--output", "json", "--warm=false")
		require.NoError(t, err)

		var members []runtime.MemberInfo
		require.NoError(t, json.Unmarshal([]byte(out), &members))
		require.Len(t, members, 3)
		assert.Equal(t, "scratch", members[0].Name)
		assert.Equal(t, "pending", members[1].State)
		assert.True(t, members[1].Warm)
		assert.Equal(t, "none", members[2].Cleanup)
	})

	t.Run("Warm", func(t *testing.T) {
		out, err := execute(t, "members", "--config", path, "--output", "json", "--warm")
		require.NoError(t, err)

		var members []runtime.MemberInfo
		require.NoError(t, json.Unmarshal([]byte(out), &members))
		assert.Equal(t, "pending", members[0].State)
		assert.Equal(t, "resolved", members[1].State)
	})

	t.Run("Table", func(t *testing.T) {
		out, err := execute(t, "members", "--config", path, "--output", "table", "--warm=false")
		require.NoError(t, err)
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "tempdir")
		assert.Contains(t, out, "guess")
	})

	t.Run("BadFormat", func(t *testing.T) {
		_, err := execute(t, "members", "--config", path, "--output", "xml")
		require.Error(t, err)
	})

	t.Run("MissingConfig", func(t *testing.T) {
		_, err := execute(t, "members", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--output", "table")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration file not found")
	})
}

func TestKindsCommand(t *testing.T) {
	out, err := execute(t, "kinds", "--output", "json")
	require.NoError(t, err)

	var kinds []struct {
		Name    string `json:"name"`
		Cleanup string `json:"cleanup"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &kinds))
	require.Len(t, kinds, 6)
	assert.Equal(t, "badger", kinds[0].Name)
	assert.Equal(t, "http", kinds[2].Name)
	assert.Equal(t, "async Shutdown", kinds[2].Cleanup)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at: "+path)
	require.FileExists(t, path)

	out, err = execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "kv")

	out, err = execute(t, "config", "show", "--config", path, "--output", "json")
	require.NoError(t, err)
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Contains(t, shown, "Members")

	schemaPath := filepath.Join(t.TempDir(), "schema.json")
	_, err = execute(t, "config", "schema", "--output", schemaPath)
	require.NoError(t, err)
	data, err := os.ReadFile(schemaPath)
	require.NoError(t, err)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "members")
	assert.Contains(t, props, "shutdown_timeout")
}

func TestConfigValidateRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `host: bad
members:
  - name: cache
    kind: redis
`)
	_, err := execute(t, "config", "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "lazyhost")
		})
	}

	_, err := execute(t, "completion", "tcsh")
	require.Error(t, err)
}
