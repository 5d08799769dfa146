// Package clean converts normalized raw records into the three canonical
// tables: participants, posts, and comments.
//
// Cleaning never rejects a malformed record: missing or unparsable values
// fall back to type-appropriate defaults, and bad timestamps collapse into
// the sentinel path (no last post observed) instead of raising. Every table
// is deduplicated so that a username appears at most once where uniqueness
// is required, first occurrence winning.
package clean

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/winnow/record"
)

// StaleDays is the last_post_days sentinel for participants with no valid
// post date: never observed posting, treated as maximally stale.
const StaleDays = 999

// activityWindow is the trailing window for the posts_90d count.
const activityWindow = 90 * 24 * time.Hour

// Participant is a cleaned profile enriched with activity metrics derived
// from that user's posts.
type Participant struct {
	Username     string    `json:"username"`
	Followers    int       `json:"followers"`
	Following    int       `json:"following"`
	IsPrivate    bool      `json:"is_private"`
	PostCount    int       `json:"post_count"`
	Bio          string    `json:"bio"`
	LastPostDate time.Time `json:"last_post_date"` // zero when never observed
	LastPostDays int       `json:"last_post_days"`
	Posts90d     int       `json:"posts_90d"`
}

// Post is a cleaned post row. Negative like/comment counts are failed
// collection sentinels and are retained as-is; consumers decide whether to
// exclude or convert them.
type Post struct {
	Username     string    `json:"username"`
	PostDate     time.Time `json:"post_date"` // zero when unparsable
	Caption      string    `json:"caption"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	MediaType    string    `json:"media_type"`
	Hashtags     []string  `json:"hashtags"`
	PostURL      string    `json:"post_url"`
}

// Comment is a cleaned comment row. One row is retained per username:
// comments are a participation signal, not a corpus.
type Comment struct {
	Username         string `json:"username"`
	CommentText      string `json:"comment_text"`
	CommentLen       int    `json:"comment_len"`
	TaggedUsersCount int    `json:"tagged_users_count"`
	PostShortcode    string `json:"post_shortcode"`
}

// Participants cleans raw profile records and enriches them with activity
// metrics computed from raw posts. Date arithmetic uses the explicit now
// reference so runs are reproducible. Profiles are deduplicated by username,
// first-seen wins; records with no resolvable username are dropped.
func Participants(profiles, posts []map[string]any, now time.Time) []Participant {
	lastPost := make(map[string]time.Time)
	recent := make(map[string]int)
	cutoff := now.Add(-activityWindow)

	for _, raw := range posts {
		username := cleanUsername(raw)
		if username == "" {
			continue
		}
		date := record.TimeField(raw, "post_date")
		if date.IsZero() {
			continue
		}
		if date.After(lastPost[username]) {
			lastPost[username] = date
		}
		if !date.Before(cutoff) {
			recent[username]++
		}
	}

	participants := make([]Participant, 0, len(profiles))
	seen := make(map[string]bool)
	for _, raw := range profiles {
		username := cleanUsername(raw)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		p := Participant{
			Username:     username,
			Followers:    record.IntField(raw, "followers", 0),
			Following:    record.IntField(raw, "following", 0),
			IsPrivate:    record.BoolField(raw, "is_private", false),
			PostCount:    record.IntField(raw, "post_count", 0),
			Bio:          record.StringField(raw, "bio", ""),
			LastPostDays: StaleDays,
			Posts90d:     recent[username],
		}
		if last, ok := lastPost[username]; ok {
			p.LastPostDate = last
			days := int(now.Sub(last).Hours() / 24)
			if days < 0 {
				days = 0
			}
			p.LastPostDays = days
		}
		participants = append(participants, p)
	}
	return participants
}

// Posts cleans raw post records. Posts are not deduplicated: many posts per
// username is the normal shape, and ordering is applied at read time by
// consumers.
func Posts(posts []map[string]any) []Post {
	out := make([]Post, 0, len(posts))
	for _, raw := range posts {
		username := cleanUsername(raw)
		if username == "" {
			continue
		}
		out = append(out, Post{
			Username:     username,
			PostDate:     record.TimeField(raw, "post_date"),
			Caption:      record.StringField(raw, "caption", ""),
			LikeCount:    record.IntField(raw, "like_count", 0),
			CommentCount: record.IntField(raw, "comment_count", 0),
			MediaType:    record.StringField(raw, "media_type", "Unknown"),
			Hashtags:     record.StringsField(raw, "hashtags"),
			PostURL:      record.StringField(raw, "post_url", ""),
		})
	}
	return out
}

// Comments cleans raw comment records, keeping the first comment per
// username.
func Comments(comments []map[string]any) []Comment {
	out := make([]Comment, 0, len(comments))
	seen := make(map[string]bool)
	for _, raw := range comments {
		username := cleanUsername(raw)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		text := record.StringField(raw, "comment_text", "")
		out = append(out, Comment{
			Username:         username,
			CommentText:      text,
			CommentLen:       len([]rune(text)),
			TaggedUsersCount: record.IntField(raw, "tagged_users_count", 0),
			PostShortcode:    record.StringField(raw, "post_shortcode", ""),
		})
	}
	return out
}

// cleanUsername resolves and trims the join key. Usernames are
// case-sensitive; only surrounding whitespace is removed.
func cleanUsername(raw map[string]any) string {
	return strings.TrimSpace(record.StringField(raw, "username", ""))
}
