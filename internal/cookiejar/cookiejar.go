// Package cookiejar loads YouTube session cookies from a Netscape-format
// cookie file or directly out of an installed browser's sqlite cookie store.
// Decrypting Chromium's encrypted cookie values is out of scope; encrypted
// entries are skipped.
package cookiejar

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrPathInvalid means the cookie source could not be located or read.
var ErrPathInvalid = errors.New("cookiejar: cookie source not readable")

// ErrNoCookies means the source was readable but contained no usable
// (unexpired, non-empty) cookies.
var ErrNoCookies = errors.New("cookiejar: no usable cookies found")

// ErrUnsupportedBrowser means the browser name is not one of the known
// cookie-store layouts.
var ErrUnsupportedBrowser = errors.New("cookiejar: unsupported browser")

// LoadFile reads a Netscape-format cookie file (the format exported by
// browser extensions and curl). Expired entries are dropped; session cookies
// (expiry 0) are kept.
func LoadFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathInvalid, path)
	}
	defer f.Close()

	var cookies []*http.Cookie
	now := time.Now().Unix()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// domain, include-subdomains flag, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		if expiry != 0 && expiry < now {
			continue
		}

		cookies = append(cookies, &http.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathInvalid, path)
	}

	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCookies, path)
	}
	return cookies, nil
}

// chromiumBrowsers maps browser names to their Linux/macOS config roots,
// relative to the home directory.
var chromiumBrowsers = map[string][]string{
	"chrome":   {".config/google-chrome", "Library/Application Support/Google/Chrome"},
	"chromium": {".config/chromium", "Library/Application Support/Chromium"},
	"edge":     {".config/microsoft-edge", "Library/Application Support/Microsoft Edge"},
	"brave":    {".config/BraveSoftware/Brave-Browser", "Library/Application Support/BraveSoftware/Brave-Browser"},
	"vivaldi":  {".config/vivaldi", "Library/Application Support/Vivaldi"},
}

var firefoxRoots = []string{".mozilla/firefox", "Library/Application Support/Firefox/Profiles"}

// FromBrowser extracts cookies for domainFilter (e.g. ".youtube.com") from
// the given browser's cookie database. The database is copied to a temp file
// first, since the browser may hold a lock on the original.
func FromBrowser(browser, profile, domainFilter string) ([]*http.Cookie, error) {
	browser = strings.ToLower(browser)

	if browser == "firefox" {
		db, err := findFirefoxCookieDB(profile)
		if err != nil {
			return nil, err
		}
		return queryCookieDB(db, "SELECT name, value, host FROM moz_cookies WHERE host LIKE ?", domainFilter)
	}

	roots, ok := chromiumBrowsers[browser]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBrowser, browser)
	}
	db, err := findChromiumCookieDB(roots, profile)
	if err != nil {
		return nil, err
	}
	// Encrypted values decode to an empty plain value and are skipped.
	return queryCookieDB(db, "SELECT name, value, host_key FROM cookies WHERE host_key LIKE ?", domainFilter)
}

func findChromiumCookieDB(roots []string, profile string) (string, error) {
	if profile == "" {
		profile = "Default"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ErrPathInvalid
	}
	for _, root := range roots {
		for _, rel := range []string{
			filepath.Join(profile, "Cookies"),
			filepath.Join(profile, "Network", "Cookies"),
		} {
			candidate := filepath.Join(home, root, rel)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no chromium cookie database found", ErrPathInvalid)
}

func findFirefoxCookieDB(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ErrPathInvalid
	}
	for _, root := range firefoxRoots {
		pattern := filepath.Join(home, root, "*", "cookies.sqlite")
		if profile != "" {
			pattern = filepath.Join(home, root, profile, "cookies.sqlite")
		}
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("%w: no firefox cookie database found", ErrPathInvalid)
}
