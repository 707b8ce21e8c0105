package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSeedURLKnownQuery(t *testing.T) {
	t.Parallel()

	got := BuildSeedURL("backend developer", "newyork")
	want := "https://www.linkedin.com/jobs/search" +
		"?keywords=backend+developer&location=newyork" +
		"&trk=public_jobs_jobs-search-bar_search-submit&position=1&pageNum=0"
	require.Equal(t, want, got)
}

func TestBuildSeedURLRoundTripsReservedCharacters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		title    string
		location string
	}{
		{name: "spaces", title: "backend developer", location: "new york"},
		{name: "ampersand", title: "C& tooling", location: "research & development"},
		{name: "percent", title: "100% remote", location: "anywhere"},
		{name: "plus_and_slash", title: "c++ engineer", location: "a/b"},
		{name: "unicode", title: "développeur", location: "zürich"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := url.Parse(BuildSeedURL(tc.title, tc.location))
			require.NoError(t, err)

			q := parsed.Query()
			require.Equal(t, tc.title, q.Get("keywords"))
			require.Equal(t, tc.location, q.Get("location"))
			require.Equal(t, "public_jobs_jobs-search-bar_search-submit", q.Get("trk"))
			require.Equal(t, "1", q.Get("position"))
			require.Equal(t, "0", q.Get("pageNum"))
		})
	}
}
