package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/dashpack/internal/catalog"
	"github.com/backmassage/dashpack/internal/check"
	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/testsupport"
)

type cliTestEnv struct {
	input   string
	catalog string
	runner  *testsupport.MediaRunner
}

// setupCLITestEnv swaps the process runner and dependency check for fakes
// and creates an input tree with two videos.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	env := &cliTestEnv{
		input:   filepath.Join(base, "in"),
		catalog: filepath.Join(base, "catalogs"),
		runner:  testsupport.NewMediaRunner(),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(env.input, "season"), 0o755))
	writeFile(t, filepath.Join(env.input, "a.mp4"))
	writeFile(t, filepath.Join(env.input, "season", "b.mkv"))

	prevRunner, prevCheck := newRunner, checkDeps
	newRunner = func(*config.Config, int) ffmpeg.Runner { return env.runner }
	checkDeps = func(*config.Config) ([]string, error) { return nil, nil }
	t.Cleanup(func() {
		newRunner, checkDeps = prevRunner, prevCheck
	})
	return env
}

func (e *cliTestEnv) args(extra ...string) []string {
	return append([]string{"-i", e.input, "--catalog-dir", e.catalog, "--no-color"}, extra...)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("source bytes"), 0o644))
}

func readCatalog(t *testing.T, path string) []catalog.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestRunWritesCatalogPerDestination(t *testing.T) {
	env := setupCLITestEnv(t)

	code := run(env.args("-p", "2", "--serve", `["https://s1.example","https://s2.example/"]`))
	require.Equal(t, 0, code)

	for i, base := range []string{"https://s1.example", "https://s2.example"} {
		entries := readCatalog(t, filepath.Join(env.catalog, fmt.Sprintf("server_%d.json", i+1)))
		assert.Equal(t, []catalog.Entry{
			{Title: "a", URL: base + "/a/main.mpd"},
			{Title: "b", URL: base + "/b/main.mpd"},
		}, entries)
	}
	assert.FileExists(t, filepath.Join(env.input, "a", naming.ManifestName))
	assert.FileExists(t, filepath.Join(env.input, "season", "b", naming.ManifestName))
}

func TestRunFailedJobExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	env.runner.Set("b.mkv", testsupport.Media{Codec: "h264", HardwareFails: true, SoftwareFails: true})

	code := run(env.args("--serve", `["https://s1.example"]`))
	assert.Equal(t, 1, code)

	entries := readCatalog(t, filepath.Join(env.catalog, "server_1.json"))
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Title)
}

func TestRunMalformedServeStillSucceeds(t *testing.T) {
	env := setupCLITestEnv(t)

	code := run(env.args("--serve", "not json"))
	assert.Equal(t, 0, code)
	assert.NoDirExists(t, env.catalog)
}

func TestRunBlankDestinationKeepsCatalogNumbering(t *testing.T) {
	env := setupCLITestEnv(t)

	require.Equal(t, 0, run(env.args("--serve", `["https://s1.example",""," https://s3.example "]`)))
	assert.FileExists(t, filepath.Join(env.catalog, "server_1.json"))
	assert.NoFileExists(t, filepath.Join(env.catalog, "server_2.json"))
	entries := readCatalog(t, filepath.Join(env.catalog, "server_3.json"))
	require.Len(t, entries, 2)
	assert.Equal(t, "https://s3.example/a/main.mpd", entries[0].URL)
}

func TestRunNoVideoFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	empty := t.TempDir()

	assert.Equal(t, 1, run([]string{"-i", empty, "--catalog-dir", env.catalog}))
	assert.Empty(t, env.runner.Calls())
}

func TestRunMissingFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t)
	checkDeps = func(*config.Config) ([]string, error) { return nil, check.ErrFFmpegNotFound }

	assert.Equal(t, 1, run(env.args()))
	assert.Empty(t, env.runner.Calls())
}

func TestRunRejectsPublishInsideInput(t *testing.T) {
	env := setupCLITestEnv(t)

	assert.Equal(t, 1, run(env.args("--output", filepath.Join(env.input, "published"))))
	assert.Empty(t, env.runner.Calls())
}

func TestRunPublishMove(t *testing.T) {
	env := setupCLITestEnv(t)
	publish := filepath.Join(t.TempDir(), "pub")

	require.Equal(t, 0, run(env.args("--output", publish, "--copy=false")))
	assert.FileExists(t, filepath.Join(publish, "a", naming.ManifestName))
	assert.FileExists(t, filepath.Join(publish, "b", naming.ManifestName))
	assert.NoDirExists(t, filepath.Join(env.input, "a"))
}

func TestRunRequiresInput(t *testing.T) {
	setupCLITestEnv(t)
	assert.Equal(t, 1, run([]string{"--no-color"}))
}

func TestRunConfigFileOverriddenByFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "dashpack.toml")
	body := fmt.Sprintf("[paths]\ninput = %q\n\n[catalog]\nformat = \"yaml\"\n", env.input)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	code := run([]string{"--config", cfgPath, "--catalog-dir", env.catalog, "--catalog-format", "json",
		"--serve", `["https://s1.example"]`})
	require.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(env.catalog, "server_1.json"))
	assert.NoFileExists(t, filepath.Join(env.catalog, "server_1.yaml"))
}

func TestPlanDoesNotWrite(t *testing.T) {
	env := setupCLITestEnv(t)
	env.runner.Set("a.mp4", testsupport.Media{Codec: "av1", VideoPackets: 10})

	require.Equal(t, 0, run(append([]string{"plan"}, env.args()...)))
	assert.NoDirExists(t, filepath.Join(env.input, "a"))
	assert.Zero(t, env.runner.CallsMatching(testsupport.IsPackage))
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	assert.Equal(t, 0, run([]string{"check", "--no-color"}))
	assert.Positive(t, env.runner.CallsTo("ffmpeg"))
}

func TestVersionFlag(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--version"}))
}
