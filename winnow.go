// Package winnow selects a winner and reserve cohort from Instagram event
// participants.
//
// Raw profile, post, and comment records go in one end; a deterministic
// pipeline of cleaning, feature extraction, scoring, and ranking produces
// the full ranking, a shortlist, and a winners draft:
//
//	result, err := winnow.Run(ctx, winnow.Input{
//	    Profiles: profiles,
//	    Posts:    posts,
//	    Comments: comments,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range result.WinnersDraft {
//	    fmt.Println(row.Rank, row.Username, row.FinalScore, row.Status)
//	}
//
// The same input always yields byte-identical output. Every nondeterministic
// ingredient is pinned: the reference time defaults to the first call's
// clock reading but can be fixed with WithNow, all iteration is
// slice-ordered, and ties rank in cleaning order.
package winnow

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/winnow/clean"
	"github.com/codeGROOVE-dev/winnow/feature"
	"github.com/codeGROOVE-dev/winnow/rank"
	"github.com/codeGROOVE-dev/winnow/score"
)

type (
	// Participant re-exports clean.Participant for convenience.
	Participant = clean.Participant
	// Post re-exports clean.Post for convenience.
	Post = clean.Post
	// Comment re-exports clean.Comment for convenience.
	Comment = clean.Comment
	// Row re-exports rank.Row for convenience.
	Row = rank.Row
	// Limits re-exports rank.Limits for convenience.
	Limits = rank.Limits
)

// Input holds the raw records for one pipeline run. Records are loosely
// keyed maps; the pipeline resolves source-specific key variants itself,
// so output from different collectors can be fed in unchanged.
type Input struct {
	Profiles []map[string]any
	Posts    []map[string]any
	Comments []map[string]any
}

// Result holds every artifact of a pipeline run, from the cleaned tables
// through the final selection views.
type Result struct {
	Participants []clean.Participant
	Posts        []clean.Post
	Comments     []clean.Comment
	Features     []feature.Row
	Scored       []score.Scored
	Ranking      []rank.Row
	Shortlist    []rank.Row
	WinnersDraft []rank.Row
	Excluded     []rank.Entry
}

// Option configures a Run call.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	now      time.Time
	window   int
	keywords []string
	limits   rank.Limits
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithNow pins the reference time used for recency and activity windows.
// Pass the collection timestamp to make reruns reproduce the original
// output exactly.
func WithNow(now time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithWindowSize sets how many most-recent posts feed the engagement
// features. The default is 12.
func WithWindowSize(n int) Option {
	return func(c *config) { c.window = n }
}

// WithKeywords replaces the topical keyword list used for the running
// hashtag rate.
func WithKeywords(keywords []string) Option {
	return func(c *config) { c.keywords = append([]string(nil), keywords...) }
}

// WithLimits overrides the shortlist, winner, and reserve sizes.
func WithLimits(limits rank.Limits) Option {
	return func(c *config) { c.limits = limits }
}

// Run executes the full selection pipeline over the given raw records.
func Run(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	cfg := &config{
		logger: slog.Default(),
		window: feature.DefaultWindow,
		limits: rank.DefaultLimits,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.now.IsZero() {
		cfg.now = time.Now().UTC()
	}
	if cfg.window <= 0 {
		cfg.window = feature.DefaultWindow
	}
	keywords := cfg.keywords
	if keywords == nil {
		keywords = feature.DefaultKeywords
	}

	cfg.logger.InfoContext(ctx, "cleaning raw records",
		"profiles", len(in.Profiles), "posts", len(in.Posts), "comments", len(in.Comments))
	participants := clean.Participants(in.Profiles, in.Posts, cfg.now)
	posts := clean.Posts(in.Posts)
	comments := clean.Comments(in.Comments)
	cfg.logger.DebugContext(ctx, "cleaned records",
		"participants", len(participants), "posts", len(posts), "comments", len(comments))
	if dropped := len(in.Profiles) - len(participants); dropped > 0 {
		cfg.logger.WarnContext(ctx, "dropped nameless or duplicate profile records", "count", dropped)
	}

	features := feature.Compute(participants, posts, cfg.window, keywords)
	scored := score.Apply(participants, features)

	output := rank.Build(scored, cfg.limits)
	cfg.logger.InfoContext(ctx, "ranking complete",
		"ranked", len(output.Ranking),
		"excluded", len(output.Excluded),
		"shortlist", len(output.Shortlist),
		"winners_draft", len(output.WinnersDraft))

	return &Result{
		Participants: participants,
		Posts:        posts,
		Comments:     comments,
		Features:     features,
		Scored:       scored,
		Ranking:      output.Ranking,
		Shortlist:    output.Shortlist,
		WinnersDraft: output.WinnersDraft,
		Excluded:     output.Excluded,
	}, nil
}
