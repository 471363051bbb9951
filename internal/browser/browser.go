// Package browser extracts the backend session cookie from local web
// browsers, so a login performed in the browser carries over to the CLI.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/models"
)

// SupportedBrowser identifies a browser whose cookie store we can read.
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// AllSupportedBrowsers lists every browser the importer can read.
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser parses a browser name, accepting common aliases.
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult is an imported session plus where it came from.
type ExtractResult struct {
	Session     *config.Session
	BrowserName string
}

// ExtractSession finds the backend session cookie for serverURL in the given
// browser's cookie stores, trying every supported browser when auto.
func ExtractSession(ctx context.Context, browser SupportedBrowser, serverURL string) (*ExtractResult, error) {
	host, err := serverHost(serverURL)
	if err != nil {
		return nil, err
	}

	if browser == BrowserAuto {
		return extractFromAllBrowsers(ctx, host)
	}
	return extractFromBrowser(ctx, browser, host)
}

// serverHost strips the scheme and port from the configured server address.
func serverHost(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL: %s", serverURL)
	}
	return u.Hostname(), nil
}

func extractFromAllBrowsers(ctx context.Context, host string) (*ExtractResult, error) {
	// Popularity order
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, browser := range browsers {
		result, err := extractFromBrowser(ctx, browser, host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find a session cookie in any browser: %w", lastErr)
	}
	return nil, fmt.Errorf("could not find a session cookie in any supported browser")
}

// extractFromBrowser tries every profile of one browser.
func extractFromBrowser(ctx context.Context, browser SupportedBrowser, host string) (*ExtractResult, error) {
	stores := kooky.FindAllCookieStores(ctx)

	var matching []kooky.CookieStore
	var browserName string
	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(strings.ToLower(name), browser) {
			matching = append(matching, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			store.Close()
		}
	}

	if len(matching) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}
	defer func() {
		for _, store := range matching {
			store.Close()
		}
	}()

	var lastErr error
	for _, store := range matching {
		result, err := sessionFromStore(ctx, store, browserName, store.Profile(), host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func matchesBrowser(browserName string, target SupportedBrowser) bool {
	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

// sessionFromStore looks for a valid session cookie scoped to the backend
// host in one cookie store.
func sessionFromStore(ctx context.Context, store kooky.CookieStore, browserName, profile, host string) (*ExtractResult, error) {
	cookies := store.TraverseCookies(
		kooky.Valid,
		kooky.DomainContains(host),
	).OnlyCookies()

	var value string
	for cookie := range cookies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if cookie.Name != models.SessionCookieName {
			continue
		}
		// Prefer the exact host over parent domains.
		if value == "" || cookie.Domain == host {
			value = cookie.Value
		}
	}

	displayName := browserName
	if profile != "" {
		displayName = fmt.Sprintf("%s (profile: %s)", browserName, profile)
	}

	if value == "" {
		return nil, fmt.Errorf("cookie %s not found in %s. Please log in to %s first", models.SessionCookieName, displayName, host)
	}

	return &ExtractResult{
		Session: &config.Session{
			Cookie:     value,
			Browser:    displayName,
			ImportedAt: time.Now(),
		},
		BrowserName: displayName,
	}, nil
}

// ListAvailableBrowsers names the browsers with readable cookie stores on
// this machine.
func ListAvailableBrowsers() []string {
	stores := kooky.FindAllCookieStores(context.Background())

	var browsers []string
	seen := make(map[string]bool)
	for _, store := range stores {
		name := store.Browser()
		if !seen[name] {
			browsers = append(browsers, name)
			seen[name] = true
		}
		store.Close()
	}
	return browsers
}
