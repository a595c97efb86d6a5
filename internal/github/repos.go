package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/state"
)

// ListRepos returns the public repositories owned by user, most recently
// updated first.
func (c *Client) ListRepos(ctx context.Context, user string) ([]state.Project, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("github user is required")
	}

	q := url.Values{}
	q.Set("type", "owner")
	q.Set("sort", "updated")

	items, err := c.getItems(ctx, c.reposURL(url.PathEscape(user)), q)
	if err != nil {
		return nil, fmt.Errorf("listing repositories of %s: %w", user, err)
	}

	var projects []state.Project
	if err := mapstructure.Decode(items, &projects); err != nil {
		return nil, fmt.Errorf("decoding repositories of %s: %w", user, err)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].UpdatedAt > projects[j].UpdatedAt
	})

	c.logger.Debug("got repositories", zap.String("user", user), zap.Int("count", len(projects)))

	return projects, nil
}

// Analyzer resolves a profile URL to the user's public projects.
type Analyzer struct {
	client       *Client
	includeForks bool
	limit        int
	logger       *zap.Logger
}

func NewAnalyzer(client *Client, includeForks bool, limit int, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, includeForks: includeForks, limit: limit, logger: logger}
}

// Analyze lists the projects of the user named by the last path segment of
// profileURL. Forks are dropped unless configured otherwise.
func (a *Analyzer) Analyze(ctx context.Context, profileURL string) ([]state.Project, error) {
	user := UsernameFromURL(profileURL)
	if user == "" {
		return nil, fmt.Errorf("no user in profile url %q", profileURL)
	}

	repos, err := a.client.ListRepos(ctx, user)
	if err != nil {
		return nil, err
	}

	projects := make([]state.Project, 0, len(repos))
	for _, r := range repos {
		if r.Fork && !a.includeForks {
			continue
		}
		projects = append(projects, r)
		if a.limit > 0 && len(projects) == a.limit {
			break
		}
	}

	a.logger.Info("analyzed source profile",
		zap.String("user", user),
		zap.Int("repositories", len(repos)),
		zap.Int("projects", len(projects)),
	)

	return projects, nil
}

// UsernameFromURL returns the last path segment of a profile URL. Plain
// user names are returned as is.
func UsernameFromURL(profileURL string) string {
	raw := strings.TrimSpace(profileURL)
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = u.Path
	} else if !strings.Contains(raw, "://") && strings.Contains(raw, ".") {
		// host without scheme, e.g. github.com/jane
		if idx := strings.Index(raw, "/"); idx != -1 {
			raw = raw[idx:]
		} else {
			return ""
		}
	}

	raw = strings.TrimRight(raw, "/")
	if idx := strings.LastIndex(raw, "/"); idx != -1 {
		raw = raw[idx+1:]
	}
	return strings.TrimPrefix(raw, "@")
}
