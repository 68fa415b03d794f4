package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCommands(t *testing.T) {
	generator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": ["Sigmur is our king (grunts)"]}`+"\x00")
	}))
	defer generator.Close()

	dir := t.TempDir()
	book := filepath.Join(dir, "sigmur.txt")
	require.NoError(t, os.WriteFile(book, []byte(
		"Sigmur was the first of the zombies. He rose from the crypt.\n\nThe baker sold bread. Nobody bought it."), 0o644))

	cfgPath := filepath.Join(dir, "mindcraft.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[world]
base_path = "`+filepath.ToSlash(filepath.Join(dir, "data"))+`"

[backend]
kind = "remote"
url = "`+generator.URL+`"

[embedder]
kind = "mock"
cache_size = 100
`), 0o644))

	out := run(t, "import", book, "--config", cfgPath, "--world", "TheAgeOfSigmur", "--max-units", "2", "--overlap", "0")
	assert.Equal(t, "added 2 chunks of "+book+" to TheAgeOfSigmur\n", out)

	out = run(t, "query", "Who is Sigmur?", "--config", cfgPath, "--world", "TheAgeOfSigmur", "-n", "1")
	assert.True(t, strings.HasPrefix(out, "[0 "), out)
	assert.Contains(t, out, "Sigmur was the first of the zombies.")
	assert.NotContains(t, out, "baker")

	out = run(t, "ask", "Zombie", "Who is Sigmur?", "--config", cfgPath, "--world", "TheAgeOfSigmur", "-p", "evil", "--mood", "angry")
	assert.Equal(t, "Sigmur is our king\n", out)
}

func TestCommands_InvalidConfig(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"query", "anything", "--config", filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, rootCmd.Execute())
}
