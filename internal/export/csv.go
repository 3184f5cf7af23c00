// Package export builds downloadable files for the console's export actions.
// Results carry a base64 payload plus content type and filename; the caller
// materializes the actual download.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"time"
)

// Result contains the export output in the shape the UI expects.
type Result struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Base64      string `json:"base64"`
}

// CSV renders headers and rows into a base64-encoded CSV download. The
// filename is stamped with the export date.
func CSV(name string, headers []string, rows [][]string) (Result, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return Result{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return Result{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return Result{}, fmt.Errorf("flush csv: %w", err)
	}

	return Result{
		Filename:    fmt.Sprintf("%s-%s.csv", name, time.Now().Format("2006-01-02")),
		ContentType: "text/csv",
		Base64:      base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
