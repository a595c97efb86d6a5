package github

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	accept          = "application/vnd.github+json"
	apiVersion      = "2022-11-28"
	contentEncoding = "gzip"
)

var (
	ErrNotFound    = errors.New("github: not found")
	ErrRateLimited = errors.New("github: rate limited")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type Item interface{}

// getItems makes GET requests for a list endpoint and returns the items of
// all pages.
func (c *Client) getItems(ctx context.Context, endpoint string, q url.Values) ([]Item, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var items []Item
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))

		var pageItems []Item
		if err := c.getJSON(ctx, endpoint, q, &pageItems); err != nil {
			return nil, err
		}

		items = append(items, pageItems...)

		if len(pageItems) < perPage {
			return items, nil
		}

		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"page %d is full (%d items)", page, len(pageItems)),
		))
	}

	c.logger.Warn("pagination stopped", zap.Int("max_pages", maxPages), zap.Int("items", len(items)))
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", req.URL.Path, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("%s: %w", resp.Status, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
