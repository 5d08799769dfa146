// Package score maps participant features onto the tiered point model.
//
// Every breakpoint in this file is a hand-specified constant, not a tunable:
// tier boundaries are closed at the top (exactly 0.5 average comments lands
// in the 0.5 tier, not below it), and changing one is an observable scoring
// regression, not a rounding nuance. Axis totals are clamped to their
// documented ranges even though the component tables already guarantee them;
// the clamp is an invariant, not a correction.
package score

import (
	"math"

	"github.com/codeGROOVE-dev/winnow/clean"
	"github.com/codeGROOVE-dev/winnow/feature"
)

// Axis score bounds.
const (
	RelationshipMax = 50
	ReliabilityMax  = 30
	RunnerFitMax    = 20
)

// Final score weights.
const (
	relationshipWeight = 0.50
	reliabilityWeight  = 0.30
	runnerFitWeight    = 0.20
)

// Scored pairs a participant with its features and computed scores.
type Scored struct {
	Participant  clean.Participant `json:"participant"`
	Features     feature.Row       `json:"features"`
	Relationship int               `json:"relationship_score"`
	Reliability  int               `json:"reliability_score"`
	RunnerFit    int               `json:"runnerfit_score"`
	Final        float64           `json:"final_score"`
}

// CommentScore maps average comment volume to the relationship base score.
func CommentScore(avgComments float64) int {
	switch {
	case avgComments < 0.5:
		return 3
	case avgComments < 1:
		return 6
	case avgComments < 2:
		return 12
	case avgComments < 4:
		return 21
	default:
		return 30
	}
}

// LowCommentPenalty penalizes accounts whose windowed posts are mostly
// low-engagement.
func LowCommentPenalty(rate float64) int {
	switch {
	case rate >= 0.8:
		return -15
	case rate >= 0.6:
		return -10
	case rate >= 0.4:
		return -5
	default:
		return 0
	}
}

// RecencyScore maps days since the last post to a reliability component.
func RecencyScore(days int) int {
	switch {
	case days <= 7:
		return 30
	case days <= 14:
		return 25
	case days <= 30:
		return 18
	case days <= 60:
		return 10
	case days <= 90:
		return 5
	default:
		return 0
	}
}

// FrequencyScore maps trailing-90-day post volume to a reliability
// component.
func FrequencyScore(posts90d int) int {
	switch {
	case posts90d == 0:
		return 0
	case posts90d <= 1:
		return 10
	case posts90d <= 3:
		return 20
	default:
		return 30
	}
}

// PrivatePenalty penalizes private accounts.
func PrivatePenalty(private bool) int {
	if private {
		return -10
	}
	return 0
}

// TopicalFitScore maps the running-content rate to the RunnerFit axis.
func TopicalFitScore(rate float64) int {
	switch {
	case rate == 0:
		return 0
	case rate <= 0.25:
		return 5
	case rate <= 0.5:
		return 10
	case rate <= 0.75:
		return 15
	default:
		return 20
	}
}

// EngagementRateScore maps comments-per-follower (percent) to the
// relationship efficiency component. A small account with a high rate
// signals a genuine community; a large account with a low rate does not.
func EngagementRateScore(rate float64) int {
	switch {
	case rate >= 1.0:
		return 20
	case rate >= 0.5:
		return 15
	case rate >= 0.2:
		return 10
	case rate >= 0.1:
		return 5
	default:
		return 0
	}
}

// Relationship combines comment volume, engagement efficiency, and the
// low-comment penalty, clamped to [0, RelationshipMax].
func Relationship(avgComments, engagementRate, lowCommentRate float64) int {
	total := CommentScore(avgComments) + EngagementRateScore(engagementRate) + LowCommentPenalty(lowCommentRate)
	return clamp(total, 0, RelationshipMax)
}

// Reliability averages the recency and frequency components and applies the
// private-account penalty, clamped to [0, ReliabilityMax].
func Reliability(lastPostDays, posts90d int, private bool) int {
	base := (RecencyScore(lastPostDays) + FrequencyScore(posts90d)) / 2
	return clamp(base+PrivatePenalty(private), 0, ReliabilityMax)
}

// RunnerFit is the topical-fit score; already bounded, no further transform.
func RunnerFit(runningRate float64) int {
	return TopicalFitScore(runningRate)
}

// Final is the weighted sum of the three axis scores, rounded to two
// decimals. It is a pure function of its arguments; no other state feeds it.
func Final(relationship, reliability, runnerFit int) float64 {
	v := relationshipWeight*float64(relationship) +
		reliabilityWeight*float64(reliability) +
		runnerFitWeight*float64(runnerFit)
	return math.Round(v*100) / 100
}

// Apply joins participants with their feature rows by username and computes
// all scores. A participant with no feature row scores against the zero
// feature record (maximal low-comment risk is not assumed here; feature
// computation already emits a row per participant, so a missing row only
// occurs when callers pass features from a different participant set).
func Apply(participants []clean.Participant, features []feature.Row) []Scored {
	byUser := make(map[string]feature.Row, len(features))
	for _, f := range features {
		byUser[f.Username] = f
	}

	scored := make([]Scored, 0, len(participants))
	for _, p := range participants {
		f := byUser[p.Username]
		f.Username = p.Username

		s := Scored{Participant: p, Features: f}
		s.Relationship = Relationship(f.AvgComments12, f.EngagementRate, f.LowCommentPostRate)
		s.Reliability = Reliability(p.LastPostDays, p.Posts90d, p.IsPrivate)
		s.RunnerFit = RunnerFit(f.RunningHashtagRate)
		s.Final = Final(s.Relationship, s.Reliability, s.RunnerFit)
		scored = append(scored, s)
	}
	return scored
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
