// Package record normalizes raw collector output into canonical fields.
//
// Collector actors disagree about field names: the same follower count may
// arrive as "followers", "followersCount", or "follower_count" depending on
// which scraper produced the record. Aliases declares, per canonical field,
// the ordered list of source keys accepted for it, and Resolve performs a
// first-match lookup. Type coercion is handled separately by the typed
// accessors (IntField, BoolField, ...) so that a record may satisfy some
// canonical fields and not others; downstream cleaning fills the gaps with
// defaults instead of rejecting the record.
package record

import (
	"strconv"
	"strings"
	"time"
)

// Aliases maps each canonical field to the source keys it may arrive under,
// in lookup order. The canonical name itself is always first.
var Aliases = map[string][]string{
	// comments
	"username":           {"username", "ownerUsername", "user", "owner"},
	"comment_text":       {"comment_text", "text", "body", "content"},
	"tagged_users_count": {"tagged_users_count", "mentions_count", "tagged_count"},
	"post_shortcode":     {"post_shortcode", "shortcode", "postId"},
	// profiles
	"followers":  {"followers", "followersCount", "follower_count"},
	"following":  {"following", "followsCount", "following_count"},
	"is_private": {"is_private", "isPrivate", "private"},
	"post_count": {"post_count", "postsCount", "mediaCount"},
	"bio":        {"bio", "biography", "description"},
	// posts
	"post_date":     {"post_date", "timestamp", "taken_at", "date", "datetime"},
	"caption":       {"caption", "text", "description"},
	"like_count":    {"like_count", "likesCount", "likes"},
	"comment_count": {"comment_count", "commentsCount", "comments"},
	"media_type":    {"media_type", "type", "mediaType"},
	"hashtags":      {"hashtags", "tags", "hashTags"},
	"post_url":      {"post_url", "url", "permalink"},
}

// Resolve returns the value stored under the first matching alias for the
// canonical field, or (nil, false) if no alias is present in the record.
// Fields without an alias entry fall back to an exact key lookup.
func Resolve(rec map[string]any, field string) (any, bool) {
	aliases, ok := Aliases[field]
	if !ok {
		aliases = []string{field}
	}
	for _, alias := range aliases {
		if v, ok := rec[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

// IntField resolves field and coerces it to an int, returning def when the
// field is absent or unparsable. Negative values pass through untouched:
// collectors use them as failed-fetch sentinels and the distinction between
// "unknown" and "zero" matters downstream.
func IntField(rec map[string]any, field string, def int) int {
	v, ok := Resolve(rec, field)
	if !ok {
		return def
	}
	return coerceInt(v, def)
}

// FloatField resolves field and coerces it to a float64.
func FloatField(rec map[string]any, field string, def float64) float64 {
	v, ok := Resolve(rec, field)
	if !ok {
		return def
	}
	return coerceFloat(v, def)
}

// BoolField resolves field and coerces it to a bool.
func BoolField(rec map[string]any, field string, def bool) bool {
	v, ok := Resolve(rec, field)
	if !ok {
		return def
	}
	return coerceBool(v, def)
}

// StringField resolves field and coerces it to a string.
func StringField(rec map[string]any, field string, def string) string {
	v, ok := Resolve(rec, field)
	if !ok {
		return def
	}
	return coerceString(v, def)
}

// TimeField resolves field and parses it as a timestamp in UTC. The zero
// time signals absent or unparsable; callers treat it as missing rather
// than erroring, per the default-fill contract.
func TimeField(rec map[string]any, field string) time.Time {
	v, ok := Resolve(rec, field)
	if !ok {
		return time.Time{}
	}
	return coerceTime(v)
}

// StringsField resolves field and coerces it to a string slice. Anything
// that is not a list yields an empty slice.
func StringsField(rec map[string]any, field string) []string {
	v, ok := Resolve(rec, field)
	if !ok {
		return []string{}
	}
	return coerceStrings(v)
}

func coerceInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return def
	default:
		return def
	}
}

func coerceFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

func coerceBool(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no", "":
			return false
		default:
			return def
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return def
	}
}

func coerceString(v any, def string) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integral values without
		// a trailing ".0" so shortcode-ish fields round-trip cleanly.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return def
	}
}

// timeLayouts are tried in order when parsing string timestamps. Collector
// output mixes ISO 8601 variants with bare dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
		// Some actors emit unix seconds as strings.
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC()
		}
		return time.Time{}
	case float64:
		if t <= 0 {
			return time.Time{}
		}
		return time.Unix(int64(t), 0).UTC()
	case int64:
		if t <= 0 {
			return time.Time{}
		}
		return time.Unix(t, 0).UTC()
	case int:
		if t <= 0 {
			return time.Time{}
		}
		return time.Unix(int64(t), 0).UTC()
	default:
		return time.Time{}
	}
}

func coerceStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := coerceString(item, ""); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
