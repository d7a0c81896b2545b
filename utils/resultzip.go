package utils

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Simulators export one JSON result file per session; stewards usually
// upload the whole weekend as a single zip.
const maxResultFileSize = 16 * 1024 * 1024 // 16MB per result file

// ReadSessionArchive extracts every session result JSON from an uploaded
// zip archive, in archive order. Non-JSON entries are skipped; an
// oversized entry aborts the whole upload.
func ReadSessionArchive(data []byte) ([]json.RawMessage, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid zip archive: %w", err)
	}

	var payloads []json.RawMessage
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ToLower(filepath.Base(f.Name))
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		if f.UncompressedSize64 > maxResultFileSize {
			return nil, fmt.Errorf("result file %s exceeds size limit", f.Name)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(io.LimitReader(rc, maxResultFileSize))
		rc.Close()
		if err != nil {
			return nil, err
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("result file %s is not valid JSON", f.Name)
		}
		payloads = append(payloads, raw)
	}

	if len(payloads) == 0 {
		return nil, fmt.Errorf("archive contains no result JSON files")
	}
	return payloads, nil
}
