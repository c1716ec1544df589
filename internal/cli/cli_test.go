package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func TestListings(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "conf/okf_plaintext@paras.fprm", "paragraphMode = true\n")

	out, err := execute(t, "filters", "--filter-config-dir", filepath.Join(dir, "conf"))
	require.NoError(t, err)
	for _, id := range []string{"okf_plaintext", "okf_plaintext_paragraphs", "okf_html", "okf_markdown", "okf_plaintext@paras"} {
		assert.Contains(t, out, id)
	}

	out, err = execute(t, "steps")
	require.NoError(t, err)
	for _, id := range []string{"raw-document-to-filter-events", "segmentation", "leverage", "tm-import", "diff-leverage"} {
		assert.Contains(t, out, id)
	}
}

func TestExtract(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "in.txt", "Hello world. Good bye.\n")
	out := filepath.Join(dir, "out.tmx")

	msg, err := execute(t, "extract", "--target", "fr", in, out)
	require.NoError(t, err)
	assert.Contains(t, msg, "extracted")

	tmx := readFile(t, out)
	assert.Contains(t, tmx, "<tmx")
	assert.Contains(t, tmx, "<seg>Hello world.</seg>")
	assert.Contains(t, tmx, "<seg>Good bye.</seg>")

	_, err = execute(t, "extract", in, out)
	assert.Error(t, err, "target locale is required")

	_, err = execute(t, "extract", "--target", "fr", writeFile(t, dir, "in.bin", "x"), out)
	assert.Error(t, err)
}

func TestExtractDetectsLegacyEncoding(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "legacy.txt", "Caf\xe9 cr\xe8me.\n")
	out := filepath.Join(dir, "legacy.tmx")

	_, err := execute(t, "extract", "--target", "fr", in, out)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, out), "<seg>Café crème.</seg>")
}

func TestRoundTrip(t *testing.T) {
	dir := isolate(t)
	files := []string{
		writeFile(t, dir, "a.txt", "First line\n\n  Indented\n"),
		writeFile(t, dir, "b.html", "<html><body><p>Hello <b>bold</b> &amp; more</p></body></html>\n"),
		writeFile(t, dir, "c.md", "# Title\n\nSome *text* here.\n"),
	}
	out, err := execute(t, append([]string{"roundtrip"}, files...)...)
	require.NoError(t, err)
	for _, f := range files {
		assert.Contains(t, out, filepath.Base(f))
	}

	_, err = execute(t, "roundtrip", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestTMImportLookupMerge(t *testing.T) {
	dir := isolate(t)
	tmPath := filepath.Join(dir, "tm", "okapi.db")
	src := writeFile(t, dir, "src.txt", "Open the file.\n\nClose it.\n")
	trg := writeFile(t, dir, "src.fr.txt", "Ouvrez le fichier.\n\nFermez-le.\n")

	out, err := execute(t, "tm", "import", "--tm", tmPath, "--target", "fr", src, trg)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 entries")

	out, err = execute(t, "tm", "count", "--tm", tmPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")

	out, err = execute(t, "tm", "lookup", "--tm", tmPath, "--target", "fr", "Close it")
	require.NoError(t, err)
	assert.Contains(t, out, "Fermez-le.")

	out, err = execute(t, "tm", "lookup", "--tm", tmPath, "--target", "fr", "--threshold", "100", "Something else")
	require.NoError(t, err)
	assert.Contains(t, out, "no match")

	doc := writeFile(t, dir, "doc.txt", "Close it.\n\nNew text.\n")
	merged := filepath.Join(dir, "doc.fr.txt")
	out, err = execute(t, "merge", "--tm", tmPath, "--target", "fr", "--leverage", "--summary", doc, merged)
	require.NoError(t, err)
	assert.Contains(t, out, "TRANSLATABLE")
	assert.Equal(t, "Fermez-le.\n\nNew text.\n", readFile(t, merged))

	_, err = execute(t, "tm", "import", "--tm", tmPath, "--target", "fr", src)
	assert.Error(t, err)
}

func TestDiffLeverage(t *testing.T) {
	dir := isolate(t)
	oldDoc := writeFile(t, dir, "old.txt", "One.\n\nTwo.\n")
	oldTrg := writeFile(t, dir, "old.fr.txt", "Un.\n\nDeux.\n")
	newDoc := writeFile(t, dir, "new.txt", "One.\n\nThree.\n")
	out := filepath.Join(dir, "new.fr.txt")

	_, err := execute(t, "diff-leverage", "--target", "fr", "--old-target", oldTrg, oldDoc, newDoc, out)
	require.NoError(t, err)
	assert.Equal(t, "Un.\n\nThree.\n", readFile(t, out))
}

func TestPipelineRun(t *testing.T) {
	dir := isolate(t)
	def := writeFile(t, dir, "copy.yaml", `name: copy
steps:
  - id: raw-document-to-filter-events
  - id: segmentation
  - id: filter-events-writer
    parameters: |
      fallback = source
`)
	in := writeFile(t, dir, "in.md", "# Title\n\nFirst. Second.\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "pipeline", "run", "--target", "fr", "-o", outDir, def, in)
	require.NoError(t, err)
	assert.Contains(t, out, "in.md")
	assert.Equal(t, "# Title\n\nFirst. Second.\n", readFile(t, filepath.Join(outDir, "in.md")))

	out, err = execute(t, "pipeline", "show", def)
	require.NoError(t, err)
	assert.Contains(t, out, "segmentation")

	bad := writeFile(t, dir, "bad.yaml", "steps:\n  - id: nope\n")
	_, err = execute(t, "pipeline", "run", "-o", outDir, bad, in)
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "okapi.yaml")

	_, err := execute(t, "config", "init", "--target", "de", path)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, path), "target_locale: de")

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "target_locale")
	assert.Contains(t, out, "de")

	_, err = execute(t, "config", "show", "--log-level", "loud")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a.tmx"), outputPath("docs/a.md", "out", ".tmx"))
	assert.Equal(t, filepath.Join("out", "a.md"), outputPath("docs/a.md", "out", ""))
}
