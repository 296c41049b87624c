// Package zip builds in-memory zip archives from named byte entries.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

type Entry struct {
	Name string
	Data []byte
}

// Archive writes all entries into a single zip and returns its bytes.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
