package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrapeworks/jobscraper/internal/scraper"
)

func TestWriteCSVHeaderAndRows(t *testing.T) {
	t.Parallel()

	records := []scraper.JobRecord{
		{Title: "Backend Engineer", CompanyName: "Acme", PostedAt: "1 day ago", URL: "https://www.linkedin.com/jobs/view/1"},
		{Title: "SRE, Platform", CompanyName: "Globex", PostedAt: "2 weeks ago", URL: "https://www.linkedin.com/jobs/view/2"},
		{Title: "Data Engineer", CompanyName: "Initech", PostedAt: "3 days ago", URL: "https://www.linkedin.com/jobs/view/3"},
	}

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, records))

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, Header, rows[0])
	require.Equal(t, []string{"SRE, Platform", "Globex", "2 weeks ago", "https://www.linkedin.com/jobs/view/2"}, rows[2])
}

func TestWriteCSVEmptyResultStillHasHeader(t *testing.T) {
	t.Parallel()

	data, err := RenderCSV(nil)
	require.NoError(t, err)
	require.Equal(t, "title,Company name,Time of posting,url\n", string(data))
}
