package utils

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestReadSessionArchiveExtractsJSONEntries(t *testing.T) {
	data := buildZip(t, map[string]string{
		"race.json":       `{"track":"Spa","session_kind":"race"}`,
		"qualifying.json": `{"track":"Spa","session_kind":"qualifying"}`,
		"readme.txt":      "not a result",
		"server.log":      "ignored too",
	})

	payloads, err := ReadSessionArchive(data)
	require.NoError(t, err)
	assert.Len(t, payloads, 2)
	for _, p := range payloads {
		assert.Contains(t, string(p), "Spa")
	}
}

func TestReadSessionArchiveSkipsHiddenFiles(t *testing.T) {
	data := buildZip(t, map[string]string{
		"race.json":            `{"track":"Spa"}`,
		".DS_Store.json":       `{}`,
		"__MACOSX/.race.json":  `garbage`,
	})

	payloads, err := ReadSessionArchive(data)
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
}

func TestReadSessionArchiveRejectsInvalidJSON(t *testing.T) {
	data := buildZip(t, map[string]string{
		"race.json": `{"track": truncated`,
	})
	_, err := ReadSessionArchive(data)
	assert.Error(t, err)
}

func TestReadSessionArchiveRejectsNonZip(t *testing.T) {
	_, err := ReadSessionArchive([]byte("definitely not a zip"))
	assert.Error(t, err)
}

func TestReadSessionArchiveRejectsEmptyArchive(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "no results here"})
	_, err := ReadSessionArchive(data)
	assert.Error(t, err)
}
