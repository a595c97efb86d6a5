package github

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoJSON(i int, fork bool) string {
	return fmt.Sprintf(`{"name":"repo-%d","description":null,"language":"Go","topics":["cli"],"html_url":"https://github.com/jane/repo-%d","stargazers_count":%d,"updated_at":"2024-01-%02dT00:00:00Z","fork":%t,"owner":{"login":"jane"}}`,
		i, i, i, i%28+1, fork)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(nil, "secret")
	c.APIURL = srv.URL
	return c
}

func TestListReposPaginates(t *testing.T) {
	var pages []string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/jane/repos", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, strconv.Itoa(perPage), r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		count := perPage
		if page == "2" {
			count = 3
		}

		items := make([]string, 0, count)
		for i := 0; i < count; i++ {
			items = append(items, repoJSON(i, false))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	})

	repos, err := c.ListRepos(context.Background(), "jane")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Len(t, repos, perPage+3)
}

func TestListReposDecodesProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		fmt.Fprintf(gz, "[%s,%s]", repoJSON(1, false), repoJSON(5, true))
		gz.Close()
		w.Write(buf.Bytes())
	})

	repos, err := c.ListRepos(context.Background(), "jane")
	require.NoError(t, err)
	require.Len(t, repos, 2)

	// most recently updated first
	assert.Equal(t, "repo-5", repos[0].Name)
	assert.True(t, repos[0].Fork)

	r := repos[1]
	assert.Equal(t, "repo-1", r.Name)
	assert.Equal(t, "Go", r.Language)
	assert.Equal(t, []string{"cli"}, r.Topics)
	assert.Equal(t, "https://github.com/jane/repo-1", r.URL)
	assert.Equal(t, 1, r.Stars)
	assert.Empty(t, r.Description)
}

func TestListReposErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		target error
	}{
		{name: "not found", status: http.StatusNotFound, target: ErrNotFound},
		{name: "rate limited", status: http.StatusForbidden, header: map[string]string{"X-RateLimit-Remaining": "0"}, target: ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			})

			_, err := c.ListRepos(context.Background(), "jane")
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	_, err := New(nil, "").ListRepos(context.Background(), "  ")
	require.Error(t, err)
}

func TestAnalyzerSkipsForksAndLimits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprintf(w, "[%s,%s,%s,%s]", repoJSON(4, false), repoJSON(3, true), repoJSON(2, false), repoJSON(1, false))
	})
	c.token = ""

	a := NewAnalyzer(c, false, 2, nil)
	projects, err := a.Analyze(context.Background(), "https://github.com/jane/")
	require.NoError(t, err)

	require.Len(t, projects, 2)
	assert.Equal(t, "repo-4", projects[0].Name)
	assert.Equal(t, "repo-2", projects[1].Name)

	_, err = a.Analyze(context.Background(), "https://github.com/")
	require.Error(t, err)
}

func TestUsernameFromURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://github.com/jane":              "jane",
		"https://github.com/jane/":             "jane",
		"http://www.github.com/jane?tab=repos": "jane",
		"github.com/jane":                      "jane",
		"jane":                                 "jane",
		"@jane":                                "jane",
		"https://www.linkedin.com/in/jane-doe": "jane-doe",
		"https://github.com":                   "",
		"github.com":                           "",
		"":                                     "",
	}

	for in, expect := range cases {
		assert.Equal(t, expect, UsernameFromURL(in), "url %q", in)
	}
}
