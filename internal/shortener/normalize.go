package shortener

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hasProtocol = regexp.MustCompile(`(?i)\Ahttps?://`)

// CleanURL canonicalizes a destination URL.
//   - Trims whitespace
//   - Treats input without an http(s) scheme or leading slash as a root-relative path
//   - Lowercases the scheme and host and removes default ports
//   - Resolves dot segments and re-encodes the path canonically
//
// The result is stable under repeated cleaning.
func CleanURL(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	if !hasProtocol.MatchString(s) && !strings.HasPrefix(s, "/") {
		s = "/" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.Host == "" && (u.Scheme != "" || u.Path == "") {
		return "", fmt.Errorf("%w: missing host or path", ErrInvalidURL)
	}

	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}

	// Dot segments are resolved on the escaped path so an encoded slash never
	// becomes a segment boundary.
	escaped, err := cleanPath(u.EscapedPath())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Path, err = url.PathUnescape(escaped); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	u.RawPath = escaped

	return u.String(), nil
}

// cleanPath drops "." and ".." segments from an escaped path, keeping a trailing
// slash, and re-encodes every segment canonically.
func cleanPath(escaped string) (string, error) {
	if escaped == "" {
		return escaped, nil
	}

	segments := strings.Split(escaped, "/")
	out := make([]string, 0, len(segments))
	last := len(segments) - 1

	for i, raw := range segments {
		seg, err := url.PathUnescape(raw)
		if err != nil {
			return "", err
		}

		switch seg {
		case ".":
			if i == last {
				out = append(out, "")
			}
		case "..":
			if len(out) > 1 {
				out = out[:len(out)-1]
			}

			if i == last {
				out = append(out, "")
			}
		default:
			out = append(out, escapeSegment(seg))
		}
	}

	return strings.Join(out, "/"), nil
}

// escapeSegment encodes a decoded path segment. A slash inside it stays escaped.
func escapeSegment(seg string) string {
	u := url.URL{Path: seg}

	return strings.ReplaceAll(u.EscapedPath(), "/", "%2F")
}
