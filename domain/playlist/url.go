// Package playlist holds the pure URL handling for playlist analysis: input
// validation, canonicalization and the dashboard fingerprint derived from it.
package playlist

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is the base error for every rejected playlist URL.
var ErrInvalidURL = errors.New("invalid playlist url")

// allowedHosts are the recognized YouTube domains. The host does not
// participate in equivalence: every canonical URL is rewritten onto
// www.youtube.com.
var allowedHosts = map[string]struct{}{
	"www.youtube.com":   {},
	"youtube.com":       {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

const canonicalHost = "www.youtube.com"

// Normalize validates a playlist URL and returns its canonical form:
// lower-cased, host rewritten to www.youtube.com, path /playlist, and every
// query parameter except list removed. Two URLs differing only in host,
// case, index= or t= normalize identically. Normalize is idempotent.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	u, err := url.Parse(strings.ToLower(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if _, ok := allowedHosts[u.Hostname()]; !ok {
		return "", fmt.Errorf("%w: unrecognized domain %q", ErrInvalidURL, u.Hostname())
	}
	if strings.TrimSuffix(u.Path, "/") != "/playlist" {
		return "", fmt.Errorf("%w: path must be /playlist", ErrInvalidURL)
	}

	listID := u.Query().Get("list")
	if listID == "" {
		return "", fmt.Errorf("%w: missing list parameter", ErrInvalidURL)
	}

	return fmt.Sprintf("https://%s/playlist?list=%s", canonicalHost, url.QueryEscape(listID)), nil
}

// Fingerprint derives the 16-character dashboard id from a canonical URL:
// the first 16 hex chars of its SHA-256. It forms the permanent public path
// /d/{id}.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

// FingerprintURL normalizes then fingerprints in one step.
func FingerprintURL(raw string) (string, error) {
	canonical, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return Fingerprint(canonical), nil
}

// ExtractListID returns the list= value of a playlist URL without requiring
// full canonical form. Backends use it to address the playlist by id.
func ExtractListID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	listID := u.Query().Get("list")
	if listID == "" {
		return "", fmt.Errorf("%w: missing list parameter", ErrInvalidURL)
	}
	return listID, nil
}
