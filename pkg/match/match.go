// Package match decides whether a URL is a video page.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultVideoHost is the host whose /watch pages count as video pages.
const DefaultVideoHost = "youtube.com"

// Matcher recognises video-page URLs: ^https?://(www.)?<host>/watch, plus any
// extra glob patterns.
type Matcher struct {
	host   string
	re     *regexp.Regexp
	extras []glob.Glob
}

// New compiles a matcher for host. Empty host means DefaultVideoHost.
func New(host string, extraPatterns ...string) (*Matcher, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultVideoHost
	}

	re, err := regexp.Compile(`^https?://(www\.)?` + regexp.QuoteMeta(host) + `/watch`)
	if err != nil {
		return nil, fmt.Errorf("invalid video host %q: %w", host, err)
	}

	m := &Matcher{host: host, re: re}
	for _, pattern := range extraPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid extra pattern '%s': %w", pattern, err)
		}
		m.extras = append(m.extras, g)
	}
	return m, nil
}

// MustNew is New for static inputs.
func MustNew(host string, extraPatterns ...string) *Matcher {
	m, err := New(host, extraPatterns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Host returns the configured video host.
func (m *Matcher) Host() string {
	return m.host
}

// IsVideoPage reports whether url is a video page. The empty URL never is.
func (m *Matcher) IsVideoPage(url string) bool {
	if url == "" {
		return false
	}
	if m.re.MatchString(url) {
		return true
	}
	for _, g := range m.extras {
		if g.Match(url) {
			return true
		}
	}
	return false
}
