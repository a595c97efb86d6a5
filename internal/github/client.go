// Package github lists the public repositories of a user through the GitHub
// REST API.
package github

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.github.com"
	userAgent = "spigell/resume-agent"
	// Max value for per_page.
	perPage = 100
	// Hard stop for pagination, 1000 repositories.
	maxPages = 10
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client. The token is optional; anonymous requests are rate
// limited harder.
func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) reposURL(user string) string {
	return fmt.Sprintf("%s/users/%s/repos", c.APIURL, user)
}
