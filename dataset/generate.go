package dataset

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DefaultSeed keeps generated samples stable across runs unless the caller
// asks for variation.
const DefaultSeed = 42

// eventShortcodes are the event posts sample commenters are attached to.
var eventShortcodes = []string{"DSuGGGvDFB7", "DSuGISfjPUk", "DSlsKZGE9KS"}

var runningKeywords = []string{
	"러닝", "런닝", "러너", "러닝크루", "마라톤", "하프", "10k", "5k", "런린이", "트레일러닝",
}

var sampleBios = []string{
	"러닝을 사랑하는 🏃‍♂️ | 마라톤 완주 3회",
	"일상을 달리다 | 러닝크루 멤버",
	"Daily runner 🏃‍♀️ #런린이",
	"여행 좋아하는 사람",
	"커피와 책을 좋아해요 ☕📚",
	"맛집 탐방러 🍜",
	"10k 목표 달성 중!",
	"트레일러닝 입문자",
	"",
	"하프마라톤 도전 중",
}

// Generate produces a synthetic population of n users with a realistic mix
// of runners, casual accounts, inactive accounts, and private accounts.
// The same seed and reference time always yield the same records.
func Generate(n int, seed int64, now time.Time) *Raw {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic sample data, not crypto
	raw := &Raw{
		Comments: []map[string]any{},
		Profiles: []map[string]any{},
		Posts:    []map[string]any{},
	}

	for i := range n {
		username := fmt.Sprintf("user_%03d", i)

		isRunner := rng.Float64() < 0.6
		isPrivate := rng.Float64() < 0.15
		isActive := rng.Float64() < 0.85

		followers := randRange(rng, 100, 5000)
		if !isRunner {
			followers = randRange(rng, 50, 1000)
		}
		postCount := randRange(rng, 10, 200)
		if !isActive {
			postCount = randRange(rng, 1, 5)
		}

		raw.Profiles = append(raw.Profiles, map[string]any{
			"username":   username,
			"followers":  followers,
			"following":  randRange(rng, 100, 800),
			"is_private": isPrivate,
			"post_count": postCount,
			"bio":        pickBio(rng, isRunner),
		})

		for range randRange(rng, 1, 3) {
			tagged := randRange(rng, 0, 3)
			comment := "참여합니다!"
			if tagged > 0 {
				comment = fmt.Sprintf("@friend%d 함께해요!", randRange(rng, 1, 10))
			}
			raw.Comments = append(raw.Comments, map[string]any{
				"username":           username,
				"comment_text":       comment,
				"tagged_users_count": tagged,
				"post_shortcode":     eventShortcodes[rng.Intn(len(eventShortcodes))],
			})
		}

		// Private users have no visible posts.
		if isPrivate {
			continue
		}

		nPosts := randRange(rng, 0, 20)
		if !isActive {
			nPosts = randRange(rng, 0, 2)
		}
		for range nPosts {
			daysAgo := randRange(rng, 0, 120)
			postDate := now.AddDate(0, 0, -daysAgo).Format(time.RFC3339)

			caption := "오늘의 일상 #daily"
			hashtags := []string{"daily", "일상", "instadaily"}
			likeCount := randRange(rng, 5, 50)
			commentCount := randRange(rng, 0, 3)

			if isRunner {
				likeCount = randRange(rng, 20, 300)
				commentCount = randRange(rng, 0, 15)
				if rng.Float64() < 0.7 {
					caption = fmt.Sprintf("오늘도 %s 완료! #%s",
						runningKeywords[rng.Intn(len(runningKeywords))],
						runningKeywords[rng.Intn(len(runningKeywords))])
					hashtags = sampleKeywords(rng, 3)
				}
			}

			raw.Posts = append(raw.Posts, map[string]any{
				"username":      username,
				"post_date":     postDate,
				"caption":       caption,
				"like_count":    likeCount,
				"comment_count": commentCount,
				"media_type":    []string{"Image", "Video", "Carousel"}[rng.Intn(3)],
				"hashtags":      hashtags,
			})
		}
	}

	return raw
}

// Augment appends generated users until the dataset reaches target unique
// commenters. Generated profiles are tagged so they can be told apart from
// collected ones. Returns the number of users added.
func Augment(raw *Raw, target int, seed int64, now time.Time) int {
	unique := make(map[string]bool)
	for _, c := range raw.Comments {
		if username, ok := c["username"].(string); ok && username != "" {
			unique[username] = true
		}
	}
	missing := target - len(unique)
	if missing <= 0 {
		return 0
	}

	sample := Generate(missing, seed, now)
	for _, p := range sample.Profiles {
		p["is_sample"] = true
		bio, _ := p["bio"].(string)
		p["bio"] = "[Sample] " + bio
	}

	raw.Comments = append(raw.Comments, sample.Comments...)
	raw.Profiles = append(raw.Profiles, sample.Profiles...)
	raw.Posts = append(raw.Posts, sample.Posts...)
	return missing
}

// randRange returns a uniform int in [lo, hi].
func randRange(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

// pickBio chooses a bio matching the user's runner-ness, falling back to the
// full list when no bio fits.
func pickBio(rng *rand.Rand, isRunner bool) string {
	var fitting []string
	for _, bio := range sampleBios {
		if strings.Contains(bio, "러") == isRunner {
			fitting = append(fitting, bio)
		}
	}
	if len(fitting) == 0 {
		fitting = sampleBios
	}
	return fitting[rng.Intn(len(fitting))]
}

// sampleKeywords draws k distinct running keywords.
func sampleKeywords(rng *rand.Rand, k int) []string {
	if k > len(runningKeywords) {
		k = len(runningKeywords)
	}
	perm := rng.Perm(len(runningKeywords))
	out := make([]string, 0, k)
	for _, idx := range perm[:k] {
		out = append(out, runningKeywords[idx])
	}
	return out
}
