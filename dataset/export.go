package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/winnow"
	"github.com/codeGROOVE-dev/winnow/rank"
)

// Processed file names.
const (
	ParticipantsCSV = "participants_clean.csv"
	PostsCSV        = "posts_clean.csv"
	CommentsCSV     = "comments_clean.csv"
	FeaturesCSV     = "features.csv"
	RankingCSV      = "ranking.csv"
	ShortlistCSV    = "shortlist.csv"
	WinnersDraftCSV = "winners_draft.csv"
	ExcludedCSV     = "excluded.csv"
)

// Export writes every pipeline artifact as CSV under dir.
func Export(dir string, result *winnow.Result) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create processed directory: %w", err)
	}

	participants := [][]string{{
		"username", "followers", "following", "is_private", "post_count",
		"bio", "last_post_date", "last_post_days", "posts_90d",
	}}
	for _, p := range result.Participants {
		participants = append(participants, []string{
			p.Username,
			strconv.Itoa(p.Followers),
			strconv.Itoa(p.Following),
			strconv.FormatBool(p.IsPrivate),
			strconv.Itoa(p.PostCount),
			p.Bio,
			formatDate(p.LastPostDate),
			strconv.Itoa(p.LastPostDays),
			strconv.Itoa(p.Posts90d),
		})
	}
	if err := writeCSV(filepath.Join(dir, ParticipantsCSV), participants); err != nil {
		return err
	}

	posts := [][]string{{
		"username", "post_date", "caption", "like_count", "comment_count",
		"media_type", "hashtags", "post_url",
	}}
	for _, p := range result.Posts {
		posts = append(posts, []string{
			p.Username,
			formatDate(p.PostDate),
			p.Caption,
			// Failed-fetch sentinels read as zero in exports; the in-memory
			// records keep the raw negative values.
			strconv.Itoa(max(p.LikeCount, 0)),
			strconv.Itoa(max(p.CommentCount, 0)),
			p.MediaType,
			strings.Join(p.Hashtags, "|"),
			p.PostURL,
		})
	}
	if err := writeCSV(filepath.Join(dir, PostsCSV), posts); err != nil {
		return err
	}

	comments := [][]string{{
		"username", "comment_text", "comment_len", "tagged_users_count", "post_shortcode",
	}}
	for _, c := range result.Comments {
		comments = append(comments, []string{
			c.Username,
			c.CommentText,
			strconv.Itoa(c.CommentLen),
			strconv.Itoa(c.TaggedUsersCount),
			c.PostShortcode,
		})
	}
	if err := writeCSV(filepath.Join(dir, CommentsCSV), comments); err != nil {
		return err
	}

	features := [][]string{{
		"username", "avg_comments_12", "avg_likes_12", "comment_like_ratio",
		"low_comment_post_rate", "community_signal", "running_hashtag_rate",
		"engagement_rate",
	}}
	for _, f := range result.Features {
		features = append(features, []string{
			f.Username,
			formatFloat(f.AvgComments12),
			formatFloat(f.AvgLikes12),
			formatFloat(f.CommentLikeRatio),
			formatFloat(f.LowCommentPostRate),
			formatFloat(f.CommunitySignal),
			formatFloat(f.RunningHashtagRate),
			formatFloat(f.EngagementRate),
		})
	}
	if err := writeCSV(filepath.Join(dir, FeaturesCSV), features); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, RankingCSV), rankingRows(result.Ranking, false)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, ShortlistCSV), rankingRows(result.Shortlist, false)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, WinnersDraftCSV), rankingRows(result.WinnersDraft, true)); err != nil {
		return err
	}

	excluded := [][]string{{"username", "risk_flag", "final_score", "is_private", "posts_90d"}}
	for _, e := range result.Excluded {
		excluded = append(excluded, []string{
			e.Participant.Username,
			e.RiskFlag(),
			formatFloat(e.Final),
			strconv.FormatBool(e.Participant.IsPrivate),
			strconv.Itoa(e.Participant.Posts90d),
		})
	}
	return writeCSV(filepath.Join(dir, ExcludedCSV), excluded)
}

func rankingRows(rows []rank.Row, withStatus bool) [][]string {
	header := []string{
		"rank", "username", "relationship_score", "reliability_score",
		"runnerfit_score", "final_score", "risk_flag", "avg_comments_12",
		"avg_likes_12", "low_comment_post_rate", "running_hashtag_rate",
		"followers", "posts_90d",
	}
	if withStatus {
		header = append(header, "status")
	}
	out := [][]string{header}
	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Rank),
			r.Username,
			strconv.Itoa(r.RelationshipScore),
			strconv.Itoa(r.ReliabilityScore),
			strconv.Itoa(r.RunnerFitScore),
			formatFloat(r.FinalScore),
			r.RiskFlag,
			formatFloat(r.AvgComments12),
			formatFloat(r.AvgLikes12),
			formatFloat(r.LowCommentPostRate),
			formatFloat(r.RunningHashtagRate),
			strconv.Itoa(r.Followers),
			strconv.Itoa(r.Posts90d),
		}
		if withStatus {
			row = append(row, r.Status)
		}
		out = append(out, row)
	}
	return out
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path) //nolint:gosec // path is operator-supplied config
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
