package auth

import (
	"context"
	"net/url"
	"testing"
)

func TestNewCookieJar(t *testing.T) {
	cookies := map[string]string{
		"sessionid": "abc123",
		"csrftoken": "xyz789",
	}

	jar, err := NewCookieJar(cookies)
	if err != nil {
		t.Fatalf("NewCookieJar failed: %v", err)
	}

	u, err := url.Parse("https://www.instagram.com/")
	if err != nil {
		t.Fatal(err)
	}
	got := jar.Cookies(u)
	if len(got) != 2 {
		t.Fatalf("jar returned %d cookies for %s, want 2", len(got), u)
	}
}

func TestNewCookieJarSkipsEmptyValues(t *testing.T) {
	jar, err := NewCookieJar(map[string]string{"sessionid": "abc", "csrftoken": ""})
	if err != nil {
		t.Fatalf("NewCookieJar failed: %v", err)
	}

	u, err := url.Parse("https://instagram.com/")
	if err != nil {
		t.Fatal(err)
	}
	got := jar.Cookies(u)
	if len(got) != 1 || got[0].Name != "sessionid" {
		t.Errorf("jar cookies = %v, want only sessionid", got)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("INSTAGRAM_SESSIONID", "test-session")
	t.Setenv("INSTAGRAM_CSRFTOKEN", "test-csrf")

	src := EnvSource{}
	cookies, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}

	if cookies["sessionid"] != "test-session" {
		t.Errorf("sessionid = %q, want %q", cookies["sessionid"], "test-session")
	}
	if cookies["csrftoken"] != "test-csrf" {
		t.Errorf("csrftoken = %q, want %q", cookies["csrftoken"], "test-csrf")
	}
}

func TestEnvSourceNoCookies(t *testing.T) {
	t.Setenv("INSTAGRAM_SESSIONID", "")
	t.Setenv("INSTAGRAM_CSRFTOKEN", "")
	t.Setenv("INSTAGRAM_DS_USER_ID", "")

	src := EnvSource{}
	cookies, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}

	if cookies != nil {
		t.Error("cookies should be nil when env vars not set")
	}
}

func TestStaticSource(t *testing.T) {
	input := map[string]string{
		"sessionid": "abc123",
		"csrftoken": "xyz789",
	}

	src := NewStaticSource(input)
	cookies, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}

	if len(cookies) != 2 {
		t.Errorf("got %d cookies, want 2", len(cookies))
	}
	if cookies["sessionid"] != "abc123" {
		t.Errorf("sessionid = %q, want %q", cookies["sessionid"], "abc123")
	}

	// Verify it's a copy
	cookies["sessionid"] = "modified"
	cookies2, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}
	if cookies2["sessionid"] != "abc123" {
		t.Error("StaticSource should return copies")
	}
}

func TestStaticSourceEmpty(t *testing.T) {
	src := NewStaticSource(nil)
	cookies, err := src.Cookies(context.Background())
	if err != nil {
		t.Fatalf("Cookies failed: %v", err)
	}

	if cookies != nil {
		t.Error("cookies should be nil for empty source")
	}
}

func TestChainSources(t *testing.T) {
	// First source returns nil
	src1 := NewStaticSource(nil)

	// Second source returns cookies
	src2 := NewStaticSource(map[string]string{"sessionid": "from-src2"})

	// Third source also has cookies (should not be reached)
	src3 := NewStaticSource(map[string]string{"sessionid": "from-src3"})

	cookies, err := ChainSources(context.Background(), src1, src2, src3)
	if err != nil {
		t.Fatalf("ChainSources failed: %v", err)
	}

	if cookies["sessionid"] != "from-src2" {
		t.Errorf("sessionid = %q, want %q", cookies["sessionid"], "from-src2")
	}
}

func TestChainSourcesAllEmpty(t *testing.T) {
	src1 := NewStaticSource(nil)
	src2 := NewStaticSource(nil)

	cookies, err := ChainSources(context.Background(), src1, src2)
	if err != nil {
		t.Fatalf("ChainSources failed: %v", err)
	}

	if cookies != nil {
		t.Error("cookies should be nil when all sources empty")
	}
}

func TestEnvVarNames(t *testing.T) {
	vars := EnvVarNames()
	varSet := make(map[string]bool)
	for _, v := range vars {
		varSet[v] = true
	}

	if !varSet["INSTAGRAM_SESSIONID"] {
		t.Error("should include INSTAGRAM_SESSIONID")
	}
	if !varSet["INSTAGRAM_CSRFTOKEN"] {
		t.Error("should include INSTAGRAM_CSRFTOKEN")
	}
}
