// Package instagram fetches profiles and recent posts from Instagram's web API.
//
// It is the fallback collector for accounts the Apify actors miss. Responses
// are emitted as raw records with the same key shapes the actors produce, so
// downstream cleaning treats both sources identically.
package instagram

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/winnow/auth"
	"github.com/codeGROOVE-dev/winnow/httpcache"
)

// Sentinel errors for fetch failures.
var (
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("profile not found")
	ErrRateLimited  = errors.New("rate limited")
)

// appID is the X-Ig-App-Id header value required by the web API.
const appID = "936619743392459"

var usernamePattern = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9_.]+)`)

// ExtractUsername pulls the username out of a profile URL, or returns the
// input unchanged when it is already a bare username. Returns "" for
// non-profile Instagram paths.
func ExtractUsername(s string) string {
	if !strings.Contains(strings.ToLower(s), "instagram.com/") {
		return strings.TrimPrefix(strings.TrimSpace(s), "@")
	}
	matches := usernamePattern.FindStringSubmatch(s)
	if len(matches) < 2 {
		return ""
	}
	username := matches[1]

	// Skip non-profile paths
	systemPaths := map[string]bool{
		"p": true, "reel": true, "reels": true, "stories": true,
		"explore": true, "direct": true, "accounts": true,
		"about": true, "legal": true, "privacy": true,
		"terms": true, "api": true, "developer": true,
	}
	if systemPaths[strings.ToLower(username)] {
		return ""
	}

	return username
}

// Client handles Instagram web API requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies        map[string]string
	cache          httpcache.Cacher
	logger         *slog.Logger
	browserCookies bool
}

// WithCookies sets explicit cookie values.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates an Instagram client. Cookies are optional; anonymous requests
// work for public profiles but get rate limited sooner.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	sources := []auth.Source{auth.NewStaticSource(cfg.cookies), auth.EnvSource{}}
	if cfg.browserCookies {
		sources = append(sources, auth.NewBrowserSource(cfg.logger))
	}
	cookies, err := auth.ChainSources(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("resolve cookies: %w", err)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // needed for corporate proxies
		},
	}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar(cookies)
		if err != nil {
			return nil, fmt.Errorf("build cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return &Client{
		httpClient: client,
		cache:      cfg.cache,
		logger:     cfg.logger,
	}, nil
}

// Profile fetches one profile and returns it as a raw record plus the recent
// timeline posts bundled in the same response.
func (c *Client) Profile(ctx context.Context, usernameOrURL string) (profile map[string]any, posts []map[string]any, err error) {
	username := ExtractUsername(usernameOrURL)
	if username == "" {
		return nil, nil, fmt.Errorf("%w: not a profile reference: %s", ErrNotFound, usernameOrURL)
	}

	c.logger.InfoContext(ctx, "fetching instagram profile", "username", username)

	apiURL := "https://i.instagram.com/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Ig-App-Id", appID)
	req.Header.Set("User-Agent", httpcache.UserAgent)

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusNotFound:
				return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, username)
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, nil, fmt.Errorf("%w: set %v or use WithCookies", ErrAuthRequired, auth.EnvVarNames())
			case http.StatusTooManyRequests:
				return nil, nil, fmt.Errorf("%w: %s", ErrRateLimited, username)
			}
		}
		return nil, nil, fmt.Errorf("fetch instagram API: %w", err)
	}

	return c.parseResponse(body, username)
}

func (c *Client) parseResponse(data []byte, username string) (map[string]any, []map[string]any, error) {
	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}

	user := resp.Data.User
	if user.Username == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, username)
	}

	profile := map[string]any{
		"username":       user.Username,
		"fullName":       user.FullName,
		"biography":      user.Biography,
		"followersCount": user.EdgeFollowedBy.Count,
		"followsCount":   user.EdgeFollow.Count,
		"postsCount":     user.EdgeOwnerToTimelineMedia.Count,
		"private":        user.IsPrivate,
		"verified":       user.IsVerified,
	}
	if user.ExternalURL != "" {
		profile["externalUrl"] = user.ExternalURL
	}

	var posts []map[string]any
	for _, edge := range user.EdgeOwnerToTimelineMedia.Edges {
		node := edge.Node
		post := map[string]any{
			"ownerUsername": user.Username,
			"timestamp":     time.Unix(node.TakenAtTimestamp, 0).UTC().Format(time.RFC3339),
			"likesCount":    node.EdgeLikedBy.Count,
			"commentsCount": node.EdgeMediaToComment.Count,
			"type":          mediaType(node),
		}
		if node.Shortcode != "" {
			post["url"] = "https://www.instagram.com/p/" + node.Shortcode + "/"
		}
		if len(node.EdgeMediaToCaption.Edges) > 0 {
			post["caption"] = node.EdgeMediaToCaption.Edges[0].Node.Text
		}
		posts = append(posts, post)
	}

	c.logger.Debug("parsed instagram profile",
		"username", user.Username,
		"followers", user.EdgeFollowedBy.Count,
		"private", user.IsPrivate,
		"recent_posts", len(posts),
	)

	return profile, posts, nil
}

func mediaType(node mediaNode) string {
	switch {
	case node.IsVideo:
		return "Video"
	case node.Typename == "GraphSidecar":
		return "Sidecar"
	default:
		return "Image"
	}
}

// apiResponse represents the Instagram web API response structure.
type apiResponse struct {
	Data struct {
		User userInfo `json:"user"`
	} `json:"data"`
}

type userInfo struct {
	Username                 string   `json:"username"`
	FullName                 string   `json:"full_name"`
	Biography                string   `json:"biography"`
	ExternalURL              string   `json:"external_url"`
	EdgeFollowedBy           count    `json:"edge_followed_by"`
	EdgeFollow               count    `json:"edge_follow"`
	EdgeOwnerToTimelineMedia timeline `json:"edge_owner_to_timeline_media"`
	IsVerified               bool     `json:"is_verified"`
	IsPrivate                bool     `json:"is_private"`
}

type count struct {
	Count int `json:"count"`
}

type timeline struct {
	Count int `json:"count"`
	Edges []struct {
		Node mediaNode `json:"node"`
	} `json:"edges"`
}

type mediaNode struct {
	Typename           string `json:"__typename"`
	Shortcode          string `json:"shortcode"`
	TakenAtTimestamp   int64  `json:"taken_at_timestamp"`
	EdgeLikedBy        count  `json:"edge_liked_by"`
	EdgeMediaToComment count  `json:"edge_media_to_comment"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	IsVideo bool `json:"is_video"`
}
