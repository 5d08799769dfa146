// Package feature derives comparative engagement metrics per participant
// from a window of their most recent posts.
//
// Negative like/comment counts are failed-collection sentinels, not real
// counts: they are excluded from averages and from the low-comment-rate
// denominator. A participant with no usable data gets the maximal-risk
// feature row rather than a neutral one — absence of data is risk.
package feature

import (
	"math"
	"sort"
	"strings"

	"github.com/codeGROOVE-dev/winnow/clean"
)

// DefaultWindow is the number of most-recent posts considered per
// participant.
const DefaultWindow = 12

// lowCommentThreshold marks a post as low-engagement when its valid comment
// count is at or below this value.
const lowCommentThreshold = 3

// DefaultKeywords is the running vocabulary used for topical-fit matching
// when no keyword list is configured. The event this pipeline was built for
// is a Korean running-crew giveaway, hence the Korean terms.
var DefaultKeywords = []string{
	"러닝", "런닝", "러너", "러닝크루", "마라톤", "하프",
	"10k", "5k", "런린이", "트레일러닝",
}

// Row holds the derived features for one participant. All float fields are
// rounded to a fixed precision (2 decimals for the averages, 4 for ratios
// and rates) so repeated runs over identical inputs reproduce byte-identical
// output.
type Row struct {
	Username           string  `json:"username"`
	AvgComments12      float64 `json:"avg_comments_12"`
	AvgLikes12         float64 `json:"avg_likes_12"`
	CommentLikeRatio   float64 `json:"comment_like_ratio"`
	LowCommentPostRate float64 `json:"low_comment_post_rate"`
	CommunitySignal    float64 `json:"community_signal"`
	RunningHashtagRate float64 `json:"running_hashtag_rate"`
	EngagementRate     float64 `json:"engagement_rate"`
}

// Compute derives one feature row per participant from that user's posts.
// window caps how many of the most recent posts (by post date, descending;
// undated posts sort last but are not excluded) are considered; values < 1
// fall back to DefaultWindow. Keywords are matched case-insensitively as
// substrings of caption plus hashtags; nil falls back to DefaultKeywords.
func Compute(participants []clean.Participant, posts []clean.Post, window int, keywords []string) []Row {
	if window < 1 {
		window = DefaultWindow
	}
	if keywords == nil {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	byUser := make(map[string][]clean.Post, len(participants))
	for _, p := range posts {
		byUser[p.Username] = append(byUser[p.Username], p)
	}

	rows := make([]Row, 0, len(participants))
	for _, participant := range participants {
		rows = append(rows, computeOne(participant, byUser[participant.Username], window, lowered))
	}
	return rows
}

func computeOne(participant clean.Participant, posts []clean.Post, window int, keywords []string) Row {
	recent := recentWindow(posts, window)
	if len(recent) == 0 {
		// No posts at all: zero features, maximal low-comment risk.
		return Row{Username: participant.Username, LowCommentPostRate: 1.0}
	}

	var commentSum, likeSum float64
	var validComments, validLikes, lowComments int
	for _, p := range recent {
		if p.CommentCount >= 0 {
			commentSum += float64(p.CommentCount)
			validComments++
			if p.CommentCount <= lowCommentThreshold {
				lowComments++
			}
		}
		if p.LikeCount >= 0 {
			likeSum += float64(p.LikeCount)
			validLikes++
		}
	}

	var avgComments, avgLikes, ratio float64
	lowRate := 1.0 // unknown engagement is maximally risky
	if validComments > 0 {
		avgComments = commentSum / float64(validComments)
		ratio = avgComments / math.Max(avgLikes1(likeSum, validLikes), 1)
		lowRate = float64(lowComments) / float64(validComments)
	}
	if validLikes > 0 {
		avgLikes = likeSum / float64(validLikes)
	}

	signal := math.Log1p(avgComments) + 0.5*ratio - lowRate

	matched := 0
	for _, p := range recent {
		text := strings.ToLower(p.Caption + " " + strings.Join(p.Hashtags, " "))
		for _, k := range keywords {
			if k != "" && strings.Contains(text, k) {
				matched++
				break
			}
		}
	}
	runningRate := float64(matched) / float64(len(recent))

	engagement := avgComments / math.Max(float64(participant.Followers), 1) * 100

	return Row{
		Username:           participant.Username,
		AvgComments12:      round2(avgComments),
		AvgLikes12:         round2(avgLikes),
		CommentLikeRatio:   round4(ratio),
		LowCommentPostRate: round4(lowRate),
		CommunitySignal:    round4(signal),
		RunningHashtagRate: round4(runningRate),
		EngagementRate:     round4(engagement),
	}
}

func avgLikes1(likeSum float64, validLikes int) float64 {
	if validLikes == 0 {
		return 0
	}
	return likeSum / float64(validLikes)
}

// recentWindow sorts posts by date descending, undated posts last, and
// returns the first window entries. The sort is stable so equal or missing
// dates preserve input order, keeping runs reproducible.
func recentWindow(posts []clean.Post, window int) []clean.Post {
	sorted := make([]clean.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PostDate, sorted[j].PostDate
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.After(b)
		}
	})
	if len(sorted) > window {
		sorted = sorted[:window]
	}
	return sorted
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
