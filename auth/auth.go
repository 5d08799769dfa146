// Package auth provides Instagram session cookie management for collection.
package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Domain is the cookie domain for Instagram sessions.
const Domain = "instagram.com"

// NewCookieJar creates an http.CookieJar populated with the given Instagram cookies.
func NewCookieJar(cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + Domain)
	if err != nil {
		return nil, err
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: "." + Domain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of authentication cookies.
type Source interface {
	// Cookies returns Instagram session cookies, or nil if unavailable.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}
