// Package rank applies the hard exclusion filters, attaches risk flags, and
// produces the ranked selection views.
//
// Every scored participant lands in exactly one of two terminal bins, the
// main pool or the excluded pool, decided once per run. Risk flags are
// advisory annotations and are computed for everyone before partitioning,
// so an excluded participant still carries its flags for audit.
package rank

import (
	"sort"
	"strings"

	"github.com/codeGROOVE-dev/winnow/score"
)

// Risk flag tokens, in the order they are emitted.
const (
	FlagPrivate    = "private"
	FlagInactive   = "inactive_90d"
	FlagLowPosts   = "low_posts"
	lowPostsCutoff = 3
)

// Selection slice sizes.
type Limits struct {
	Shortlist int
	Winners   int
	Reserves  int
}

// DefaultLimits matches the event's cohort: 40 shortlisted, 20 winners,
// 10 reserves.
var DefaultLimits = Limits{Shortlist: 40, Winners: 20, Reserves: 10}

// Winner/reserve status values in the winners draft.
const (
	StatusWinner  = "winner"
	StatusReserve = "reserve"
)

// Entry is a scored participant annotated with risk flags. Flags stay an
// ordered token slice internally; RiskFlag joins them only at the output
// boundary.
type Entry struct {
	score.Scored
	Flags []string `json:"flags"`
}

// RiskFlag serializes the flag set to its "|"-joined wire form, empty when
// there are no flags.
func (e Entry) RiskFlag() string {
	return strings.Join(e.Flags, "|")
}

// Row is one line of the ranking output, the column set consumed by the
// dashboard and export tooling.
type Row struct {
	Rank               int     `json:"rank"`
	Username           string  `json:"username"`
	RelationshipScore  int     `json:"relationship_score"`
	ReliabilityScore   int     `json:"reliability_score"`
	RunnerFitScore     int     `json:"runnerfit_score"`
	FinalScore         float64 `json:"final_score"`
	RiskFlag           string  `json:"risk_flag"`
	AvgComments12      float64 `json:"avg_comments_12"`
	AvgLikes12         float64 `json:"avg_likes_12"`
	LowCommentPostRate float64 `json:"low_comment_post_rate"`
	RunningHashtagRate float64 `json:"running_hashtag_rate"`
	Followers          int     `json:"followers"`
	Posts90d           int     `json:"posts_90d"`
	Status             string  `json:"status,omitempty"` // winners draft only
}

// Output holds the three ranked views plus the excluded pool.
type Output struct {
	Ranking      []Row   `json:"ranking"`
	Shortlist    []Row   `json:"shortlist"`
	WinnersDraft []Row   `json:"winners_draft"`
	Excluded     []Entry `json:"excluded"`
}

// Flags returns the risk flag tokens for a scored participant. Flags are
// computed independently of the exclusion predicate even where they overlap
// with it.
func Flags(s score.Scored) []string {
	var flags []string
	if s.Participant.IsPrivate {
		flags = append(flags, FlagPrivate)
	}
	if s.Participant.Posts90d == 0 {
		flags = append(flags, FlagInactive)
	}
	if s.Participant.PostCount <= lowPostsCutoff {
		flags = append(flags, FlagLowPosts)
	}
	return flags
}

// Annotate attaches risk flags to every scored participant.
func Annotate(scored []score.Scored) []Entry {
	entries := make([]Entry, 0, len(scored))
	for _, s := range scored {
		entries = append(entries, Entry{Scored: s, Flags: Flags(s)})
	}
	return entries
}

// excluded is the hard-filter predicate: private accounts and accounts with
// no posts in the trailing 90 days are removed from ranking eligibility.
func excluded(e Entry) bool {
	return e.Participant.IsPrivate || e.Participant.Posts90d == 0
}

// Partition splits annotated entries into the main and excluded pools.
// The two pools are a strict bipartition of the input: every entry appears
// in exactly one.
func Partition(entries []Entry) (main, out []Entry) {
	main = make([]Entry, 0, len(entries))
	out = make([]Entry, 0)
	for _, e := range entries {
		if excluded(e) {
			out = append(out, e)
		} else {
			main = append(main, e)
		}
	}
	return main, out
}

// Build annotates, partitions, ranks, and slices the selection views.
// The main pool is sorted by final score descending; ties break in favor of
// flag-free entries, regardless of which flag the other carries. The sort
// is stable, so entries equal under both criteria keep their cleaning
// order, which makes the full output reproducible. Ranks are dense and
// 1-based. The shortlist and winners draft truncate silently when the pool
// is smaller than their nominal sizes.
func Build(scored []score.Scored, limits Limits) Output {
	entries := Annotate(scored)
	main, out := Partition(entries)

	sort.SliceStable(main, func(i, j int) bool {
		if main[i].Final != main[j].Final {
			return main[i].Final > main[j].Final
		}
		return len(main[i].Flags) == 0 && len(main[j].Flags) > 0
	})

	ranking := make([]Row, 0, len(main))
	for i, e := range main {
		ranking = append(ranking, row(i+1, e))
	}

	shortlist := head(ranking, limits.Shortlist)

	winners := head(ranking, limits.Winners)
	draft := make([]Row, 0, limits.Winners+limits.Reserves)
	for _, r := range winners {
		r.Status = StatusWinner
		draft = append(draft, r)
	}
	if len(ranking) > limits.Winners {
		reserves := head(ranking[limits.Winners:], limits.Reserves)
		for _, r := range reserves {
			r.Status = StatusReserve
			draft = append(draft, r)
		}
	}

	return Output{
		Ranking:      ranking,
		Shortlist:    shortlist,
		WinnersDraft: draft,
		Excluded:     out,
	}
}

func row(rankN int, e Entry) Row {
	return Row{
		Rank:               rankN,
		Username:           e.Participant.Username,
		RelationshipScore:  e.Relationship,
		ReliabilityScore:   e.Reliability,
		RunnerFitScore:     e.RunnerFit,
		FinalScore:         e.Final,
		RiskFlag:           e.RiskFlag(),
		AvgComments12:      e.Features.AvgComments12,
		AvgLikes12:         e.Features.AvgLikes12,
		LowCommentPostRate: e.Features.LowCommentPostRate,
		RunningHashtagRate: e.Features.RunningHashtagRate,
		Followers:          e.Participant.Followers,
		Posts90d:           e.Participant.Posts90d,
	}
}

func head(rows []Row, n int) []Row {
	if len(rows) < n {
		n = len(rows)
	}
	out := make([]Row, n)
	copy(out, rows[:n])
	return out
}
