package winnow

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func profileRec(username string, followers int, private bool) map[string]any {
	return map[string]any{
		"username":       username,
		"followersCount": followers,
		"followsCount":   100,
		"private":        private,
		"postsCount":     60,
		"biography":      "weekend runner",
	}
}

func postRec(username string, daysAgo, likes, comments int, caption string) map[string]any {
	return map[string]any{
		"ownerUsername": username,
		"timestamp":     testNow.AddDate(0, 0, -daysAgo).Format(time.RFC3339),
		"caption":       caption,
		"likesCount":    likes,
		"commentsCount": comments,
		"type":          "Image",
	}
}

func testInput() Input {
	var posts []map[string]any
	// Active account with strong comment volume and topical captions.
	for i := range 12 {
		posts = append(posts, postRec("strong", i*5+1, 120, 8, "오늘도 러닝 완료 #러닝"))
	}
	// Active but quiet account.
	for i := range 12 {
		posts = append(posts, postRec("quiet", i*6+2, 40, 1, "coffee time"))
	}
	// Private account, filtered out of the ranking.
	posts = append(posts, postRec("hidden", 3, 50, 5, "marathon prep"))
	// Stale account with no post in the last 90 days.
	posts = append(posts, postRec("stale", 200, 30, 2, "old race recap"))

	return Input{
		Profiles: []map[string]any{
			profileRec("strong", 2000, false),
			profileRec("quiet", 800, false),
			profileRec("hidden", 500, true),
			profileRec("stale", 1500, false),
		},
		Posts: posts,
		Comments: []map[string]any{
			{"username": "strong", "text": "참여합니다!", "post_shortcode": "abc"},
		},
	}
}

func TestRunPipeline(t *testing.T) {
	result, err := Run(context.Background(), testInput(), WithNow(testNow))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Participants) != 4 {
		t.Fatalf("Participants = %d, want 4", len(result.Participants))
	}

	wantRanking := []string{"strong", "quiet"}
	if len(result.Ranking) != len(wantRanking) {
		t.Fatalf("Ranking = %d rows, want %d", len(result.Ranking), len(wantRanking))
	}
	for i, r := range result.Ranking {
		if r.Username != wantRanking[i] {
			t.Errorf("Ranking[%d] = %q, want %q", i, r.Username, wantRanking[i])
		}
	}

	excluded := make(map[string]bool)
	for _, e := range result.Excluded {
		excluded[e.Participant.Username] = true
	}
	if !excluded["hidden"] || !excluded["stale"] {
		t.Errorf("Excluded = %v, want hidden and stale", excluded)
	}

	if result.Ranking[0].FinalScore <= result.Ranking[1].FinalScore {
		t.Errorf("Ranking not descending: %v then %v",
			result.Ranking[0].FinalScore, result.Ranking[1].FinalScore)
	}
}

func TestRunPartitionCompleteness(t *testing.T) {
	result, err := Run(context.Background(), testInput(), WithNow(testNow))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := len(result.Ranking)+len(result.Excluded), len(result.Participants); got != want {
		t.Errorf("ranking + excluded = %d, want %d participants", got, want)
	}
}

func TestRunDeterministic(t *testing.T) {
	ctx := context.Background()
	first, err := Run(ctx, testInput(), WithNow(testNow))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for range 3 {
		again, err := Run(ctx, testInput(), WithNow(testNow))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		a, err := json.Marshal(first)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		b, err := json.Marshal(again)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(a) != string(b) {
			t.Fatal("repeated runs produced different output")
		}
	}
}

func TestRunWithLimits(t *testing.T) {
	in := Input{}
	for i := range 8 {
		username := fmt.Sprintf("user%d", i)
		in.Profiles = append(in.Profiles, profileRec(username, 1000+i, false))
		for d := range 6 {
			in.Posts = append(in.Posts, postRec(username, d*10+1, 50+i, i, "run"))
		}
	}
	result, err := Run(context.Background(), in,
		WithNow(testNow),
		WithLimits(Limits{Shortlist: 5, Winners: 3, Reserves: 2}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Shortlist) != 5 {
		t.Errorf("Shortlist = %d rows, want 5", len(result.Shortlist))
	}
	if len(result.WinnersDraft) != 5 {
		t.Errorf("WinnersDraft = %d rows, want 5", len(result.WinnersDraft))
	}
	wantStatus := []string{"winner", "winner", "winner", "reserve", "reserve"}
	for i, r := range result.WinnersDraft {
		if r.Status != wantStatus[i] {
			t.Errorf("WinnersDraft[%d].Status = %q, want %q", i, r.Status, wantStatus[i])
		}
	}
}

func TestRunWithKeywords(t *testing.T) {
	in := Input{
		Profiles: []map[string]any{profileRec("cyclist", 900, false)},
		Posts: []map[string]any{
			postRec("cyclist", 2, 80, 4, "morning ride #cycling"),
			postRec("cyclist", 9, 70, 3, "rest day"),
		},
	}
	result, err := Run(context.Background(), in,
		WithNow(testNow), WithKeywords([]string{"cycling"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Features) != 1 {
		t.Fatalf("Features = %d rows, want 1", len(result.Features))
	}
	if got := result.Features[0].RunningHashtagRate; got != 0.5 {
		t.Errorf("RunningHashtagRate = %v, want 0.5", got)
	}
}

func TestRunEmptyInput(t *testing.T) {
	result, err := Run(context.Background(), Input{}, WithNow(testNow))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Ranking) != 0 || len(result.Excluded) != 0 ||
		len(result.Shortlist) != 0 || len(result.WinnersDraft) != 0 {
		t.Errorf("empty input produced rows: %+v", result)
	}
}
