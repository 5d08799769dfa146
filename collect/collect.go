// Package collect gathers raw participant data from Instagram via Apify actors.
//
// Collection walks outward from the event posts: comments name the
// participants, then each participant's profile and recent posts are pulled
// in turn. All records come back as loosely keyed maps ready for cleaning.
package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/winnow/httpcache"
	"github.com/codeGROOVE-dev/winnow/record"
)

// Apify actor IDs for each record kind.
const (
	ActorComments = "apify~instagram-comment-scraper"
	ActorProfiles = "apify~instagram-profile-scraper"
	ActorPosts    = "apify~instagram-post-scraper"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"

	// waitForFinish is how long the run-start call blocks server side, in seconds.
	waitForFinish = 300

	pollInterval = 5 * time.Second
)

// ErrNoToken is returned when a client is constructed without an API token.
var ErrNoToken = errors.New("apify token required")

// terminal run statuses.
var terminalStatus = map[string]bool{
	"SUCCEEDED": true,
	"FAILED":    true,
	"ABORTED":   true,
	"TIMED-OUT": true,
}

// Client calls the Apify actor API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cache      httpcache.Cacher
	token      string
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Apify API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCache enables caching of completed actor runs. Actor runs are slow and
// billed per result, so replaying a sweep from cache is much cheaper than
// rerunning it.
func WithCache(cache httpcache.Cacher) Option {
	return func(c *Client) { c.cache = cache }
}

// New creates an Apify client.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		token:      token,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Comments collects comments from one event post and normalizes them to
// participant comment records.
func (c *Client) Comments(ctx context.Context, shortcode string, limit int) ([]map[string]any, error) {
	input := map[string]any{
		"directUrls":   []string{"https://www.instagram.com/p/" + shortcode + "/"},
		"resultsLimit": limit,
	}
	items, err := c.runActor(ctx, ActorComments, input)
	if err != nil {
		return nil, fmt.Errorf("collect comments for %s: %w", shortcode, err)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		username := record.StringField(item, "username", "")
		if username == "" {
			continue
		}
		out = append(out, map[string]any{
			"username":           username,
			"comment_text":       record.StringField(item, "comment_text", ""),
			"tagged_users_count": len(record.StringsField(item, "mentions")),
			"post_shortcode":     shortcode,
		})
	}
	c.logger.InfoContext(ctx, "collected comments", "shortcode", shortcode, "count", len(out))
	return out, nil
}

// Profiles collects profile records for the given usernames.
func (c *Client) Profiles(ctx context.Context, usernames []string) ([]map[string]any, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	items, err := c.runActor(ctx, ActorProfiles, map[string]any{"usernames": usernames})
	if err != nil {
		return nil, fmt.Errorf("collect profiles: %w", err)
	}
	c.logger.InfoContext(ctx, "collected profiles", "requested", len(usernames), "received", len(items))
	return items, nil
}

// Posts collects a user's recent posts. Every record is stamped with the
// username because the post actor omits the owner on some media kinds.
func (c *Client) Posts(ctx context.Context, username string, limit int) ([]map[string]any, error) {
	input := map[string]any{
		"username":     []string{username},
		"resultsLimit": limit,
	}
	items, err := c.runActor(ctx, ActorPosts, input)
	if err != nil {
		return nil, fmt.Errorf("collect posts for %s: %w", username, err)
	}
	for _, item := range items {
		if record.StringField(item, "username", "") == "" {
			item["username"] = username
		}
	}
	c.logger.InfoContext(ctx, "collected posts", "username", username, "count", len(items))
	return items, nil
}

// Bundle holds one full collection sweep.
type Bundle struct {
	Comments []map[string]any
	Profiles []map[string]any
	Posts    []map[string]any
}

// Gather runs the full collection flow for the given event posts: comments
// first, then profiles and recent posts for every unique commenter. Private
// accounts keep their profile record but skip the post fetch. Usernames are
// visited in sorted order so repeated sweeps hit the cacheable endpoints in
// the same sequence.
func (c *Client) Gather(ctx context.Context, shortcodes []string, commentLimit, postLimit int) (*Bundle, error) {
	bundle := &Bundle{}
	seen := make(map[string]bool)

	for _, shortcode := range shortcodes {
		comments, err := c.Comments(ctx, shortcode, commentLimit)
		if err != nil {
			return nil, err
		}
		// Deduplicate commenters across posts, keeping the first comment.
		for _, comment := range comments {
			username := record.StringField(comment, "username", "")
			if seen[username] {
				continue
			}
			seen[username] = true
			bundle.Comments = append(bundle.Comments, comment)
		}
	}

	usernames := make([]string, 0, len(seen))
	for username := range seen {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	c.logger.InfoContext(ctx, "unique participants", "count", len(usernames))

	profiles, err := c.Profiles(ctx, usernames)
	if err != nil {
		return nil, err
	}
	bundle.Profiles = profiles

	private := make(map[string]bool)
	for _, p := range profiles {
		if record.BoolField(p, "is_private", false) {
			private[record.StringField(p, "username", "")] = true
		}
	}

	for _, username := range usernames {
		if private[username] {
			c.logger.DebugContext(ctx, "skipping posts for private account", "username", username)
			continue
		}
		posts, err := c.Posts(ctx, username, postLimit)
		if err != nil {
			return nil, err
		}
		bundle.Posts = append(bundle.Posts, posts...)
	}

	return bundle, nil
}

// runActor starts an actor run, waits for it to finish, and returns the
// default dataset items. With a cache configured, successful runs are stored
// keyed by actor and input, and later calls with the same input replay the
// stored items instead of starting a run.
func (c *Client) runActor(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	if c.cache == nil {
		return c.execActor(ctx, actorID, input)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode actor input: %w", err)
	}
	key := httpcache.URLToKey(actorID + "|" + string(payload))

	var wasRun bool
	data, err := c.cache.GetSet(ctx, key, func(ctx context.Context) ([]byte, error) {
		wasRun = true
		items, runErr := c.execActor(ctx, actorID, input)
		if runErr != nil {
			return nil, runErr
		}
		return json.Marshal(items)
	}, c.cache.TTL())
	if err != nil {
		return nil, err
	}
	if !wasRun {
		c.logger.InfoContext(ctx, "replaying cached actor run", "actor", actorID)
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cached actor run: %w", err)
	}
	return items, nil
}

func (c *Client) execActor(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	c.logger.InfoContext(ctx, "starting actor", "actor", actorID)

	run, err := c.startRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	for !terminalStatus[run.Status] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
		run, err = c.runStatus(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		c.logger.DebugContext(ctx, "actor run status", "run", run.ID, "status", run.Status)
	}

	if run.Status != "SUCCEEDED" {
		return nil, fmt.Errorf("actor %s run %s ended with status %s", actorID, run.ID, run.Status)
	}
	if run.DefaultDatasetID == "" {
		return nil, fmt.Errorf("actor %s run %s produced no dataset", actorID, run.ID)
	}

	return c.datasetItems(ctx, run.DefaultDatasetID)
}

type actorRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data actorRun `json:"data"`
}

func (c *Client) startRun(ctx context.Context, actorID string, input map[string]any) (actorRun, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return actorRun{}, fmt.Errorf("encode actor input: %w", err)
	}

	url := fmt.Sprintf("%s/acts/%s/runs?waitForFinish=%d", c.baseURL, actorID, waitForFinish)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return actorRun{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return actorRun{}, fmt.Errorf("start actor run: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // intentional

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort for the error message
		return actorRun{}, fmt.Errorf("start actor run: HTTP %d: %s", resp.StatusCode, body)
	}

	var envelope runEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return actorRun{}, fmt.Errorf("decode run response: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) runStatus(ctx context.Context, runID string) (actorRun, error) {
	var envelope runEnvelope
	body, err := c.get(ctx, c.baseURL+"/actor-runs/"+runID)
	if err != nil {
		return actorRun{}, fmt.Errorf("poll run %s: %w", runID, err)
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return actorRun{}, fmt.Errorf("decode run status: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	body, err := c.get(ctx, c.baseURL+"/datasets/"+datasetID+"/items")
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", datasetID, err)
	}
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	c.logger.Debug("retrieved dataset items", "dataset", datasetID, "count", len(items))
	return items, nil
}

// get performs an authorized GET with retries on transient failures.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+c.token)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
			}
			return io.ReadAll(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxJitter(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying apify request", "attempt", n+1, "url", url, "error", err)
		}),
	)
}
