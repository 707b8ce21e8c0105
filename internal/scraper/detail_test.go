package scraper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const detailPage = `<html><body>
<h1 class="top-card-layout__title">
   Senior   Backend
   Engineer </h1>
<a class="topcard__org-name-link" href="/company/acme">
  Acme	Corp
</a>
<span class="posted-time-ago__text">
  2 weeks ago
</span>
</body></html>`

func TestExtractJobRecordNormalizesWhitespace(t *testing.T) {
	t.Parallel()

	page, err := NewPage("https://www.linkedin.com/jobs/view/1", 200, []byte(detailPage), true)
	require.NoError(t, err)

	rec, err := ExtractJobRecord(page)
	require.NoError(t, err)
	require.Equal(t, JobRecord{
		Title:       "Senior Backend Engineer",
		CompanyName: "Acme Corp",
		PostedAt:    "2 weeks ago",
		URL:         "https://www.linkedin.com/jobs/view/1",
	}, rec)
}

func TestExtractJobRecordMissingCompanyFails(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h1 class="top-card-layout__title">Engineer</h1>
<span class="posted-time-ago__text">1 day ago</span>
</body></html>`
	page, err := NewPage("https://www.linkedin.com/jobs/view/2", 200, []byte(html), true)
	require.NoError(t, err)

	_, err = ExtractJobRecord(page)
	var notFound *ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "company_name", notFound.Field)
}

func TestCollapseWhitespaceIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"one",
		"  two\n\twords  ",
		"a \t b \n c",
		"already collapsed",
	}
	for _, in := range inputs {
		once := CollapseWhitespace(in)
		require.Equal(t, once, CollapseWhitespace(once), "input %q", in)
	}
}

func TestSearchQueryValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		query     SearchQuery
		wantField string
	}{
		{name: "valid", query: SearchQuery{Title: "go", Location: "berlin", OutputName: "out"}},
		{name: "empty_title", query: SearchQuery{Location: "berlin", OutputName: "out"}, wantField: "title"},
		{name: "blank_location", query: SearchQuery{Title: "go", Location: "  ", OutputName: "out"}, wantField: "location"},
		{name: "empty_output", query: SearchQuery{Title: "go", Location: "berlin"}, wantField: "data_name"},
		{name: "path_traversal", query: SearchQuery{Title: "go", Location: "berlin", OutputName: "../etc"}, wantField: "data_name"},
		{name: "separator", query: SearchQuery{Title: "go", Location: "berlin", OutputName: "a/b"}, wantField: "data_name"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.query.Validate()
			if tc.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.wantField, verr.Field)
		})
	}
}
