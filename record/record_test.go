package record

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		rec   map[string]any
		field string
		want  any
		found bool
	}{
		{
			name:  "canonical key wins",
			rec:   map[string]any{"followers": 100, "followersCount": 200},
			field: "followers",
			want:  100,
			found: true,
		},
		{
			name:  "camelCase alias",
			rec:   map[string]any{"followersCount": 200},
			field: "followers",
			want:  200,
			found: true,
		},
		{
			name:  "snake_case alias",
			rec:   map[string]any{"follower_count": 300},
			field: "followers",
			want:  300,
			found: true,
		},
		{
			name:  "alias order is declaration order",
			rec:   map[string]any{"follower_count": 300, "followersCount": 200},
			field: "followers",
			want:  200,
			found: true,
		},
		{
			name:  "no alias present",
			rec:   map[string]any{"something_else": 1},
			field: "followers",
			found: false,
		},
		{
			name:  "comment text via body alias",
			rec:   map[string]any{"body": "hello"},
			field: "comment_text",
			want:  "hello",
			found: true,
		},
		{
			name:  "unknown field falls back to exact key",
			rec:   map[string]any{"custom": "x"},
			field: "custom",
			want:  "x",
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Resolve(tt.rec, tt.field)
			if found != tt.found {
				t.Fatalf("Resolve() found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntField(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want int
	}{
		{"json number", map[string]any{"followers": float64(42)}, 42},
		{"numeric string", map[string]any{"followers": "42"}, 42},
		{"float string", map[string]any{"followers": "42.9"}, 42},
		{"negative sentinel preserved", map[string]any{"followers": float64(-1)}, -1},
		{"garbage string defaults", map[string]any{"followers": "lots"}, 0},
		{"absent defaults", map[string]any{}, 0},
		{"nil value defaults", map[string]any{"followers": nil}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntField(tt.rec, "followers", 0); got != tt.want {
				t.Errorf("IntField() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBoolField(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want bool
	}{
		{"bool true", true, true},
		{"string true", "true", true},
		{"string yes", "Yes", true},
		{"string false", "false", false},
		{"number one", float64(1), true},
		{"number zero", float64(0), false},
		{"garbage defaults false", "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := map[string]any{"is_private": tt.val}
			if got := BoolField(rec, "is_private", false); got != tt.want {
				t.Errorf("BoolField(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestTimeField(t *testing.T) {
	tests := []struct {
		name     string
		val      any
		wantZero bool
		want     time.Time
	}{
		{
			name: "rfc3339",
			val:  "2025-06-01T10:30:00Z",
			want: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with offset normalized to UTC",
			val:  "2025-06-01T19:30:00+09:00",
			want: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "bare date",
			val:  "2025-06-01",
			want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "space separator",
			val:  "2025-06-01 10:30:00",
			want: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "unix seconds",
			val:  float64(1748773800),
			want: time.Unix(1748773800, 0).UTC(),
		},
		{name: "unparsable", val: "someday soon", wantZero: true},
		{name: "empty string", val: "", wantZero: true},
		{name: "wrong type", val: []any{}, wantZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := map[string]any{"post_date": tt.val}
			got := TimeField(rec, "post_date")
			if tt.wantZero {
				if !got.IsZero() {
					t.Fatalf("TimeField(%v) = %v, want zero time", tt.val, got)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("TimeField(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestStringsField(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want []string
	}{
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"any slice from JSON", []any{"run", "5k"}, []string{"run", "5k"}},
		{"mixed types keep coercible items", []any{"run", float64(10)}, []string{"run", "10"}},
		{"scalar yields empty", "not-a-list", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := map[string]any{"hashtags": tt.val}
			got := StringsField(rec, "hashtags")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("StringsField() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Resolve must be a pure function of the record and alias table: repeated
// calls cannot mutate the record.
func TestResolveDoesNotMutate(t *testing.T) {
	rec := map[string]any{"followersCount": float64(5)}
	for range 3 {
		Resolve(rec, "followers")
		IntField(rec, "followers", 0)
	}
	want := map[string]any{"followersCount": float64(5)}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mutated (-want +got):\n%s", diff)
	}
}
