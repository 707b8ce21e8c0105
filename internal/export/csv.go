// Package export renders crawl results as delimited artifacts.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// Header is the fixed column set of the exported CSV.
var Header = []string{"title", "Company name", "Time of posting", "url"}

// WriteCSV writes the header and one row per record. The artifact is written
// once at crawl completion, not incrementally.
func WriteCSV(w io.Writer, records []scraper.JobRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{rec.Title, rec.CompanyName, rec.PostedAt, rec.URL}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// RenderCSV returns the CSV artifact as bytes.
func RenderCSV(records []scraper.JobRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
