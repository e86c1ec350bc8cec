package model

import (
	"errors"
	"strings"
)

// Target errors.
var (
	// ErrEmptyTarget is returned when the target URL is empty.
	ErrEmptyTarget = errors.New("target URL cannot be empty")
	// ErrInvalidTarget is returned when no identifier can be derived from the URL.
	ErrInvalidTarget = errors.New("invalid target URL: no host component")
)

// idReplacer maps the characters of a host that are unsafe in a volume spec.
var idReplacer = strings.NewReplacer(".", "_", ":", "_")

// Target is an immutable value object representing a URL to scan.
// It carries the identifier used to name the target's report directory
// and report files.
type Target struct {
	url string // URL as given by the user (trimmed)
	id  string // Filesystem-safe identifier derived from the host component
}

// NewTarget creates a Target from a URL string.
// Surrounding whitespace is trimmed. Returns an error if the URL is empty
// or has no host component.
func NewTarget(rawURL string) (Target, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return Target{}, ErrEmptyTarget
	}

	id := TargetID(trimmed)
	if id == "" {
		return Target{}, ErrInvalidTarget
	}

	return Target{url: trimmed, id: id}, nil
}

// NewTargets creates Targets from a list of URLs, stopping at the first
// invalid one.
func NewTargets(rawURLs []string) ([]Target, error) {
	targets := make([]Target, 0, len(rawURLs))
	for _, raw := range rawURLs {
		target, err := NewTarget(raw)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// TargetID derives the filesystem-safe identifier of a target URL.
//
// The scheme is stripped by keeping what follows the last "//", the path,
// query and fragment are dropped at the first "/", "?" or "#", and every
// "." and ":" is replaced with "_". For example "https://app.example.com/login"
// becomes "app_example_com" and "http://localhost:8080" becomes
// "localhost_8080".
//
// Design decision: The identifier names the directory mounted into the
// scanner container with "-v <dir>:/zap/wrk/:rw". A colon in it would split
// the volume spec, so ports map to "_" like dots do.
func TargetID(rawURL string) string {
	host := rawURL
	if idx := strings.LastIndex(host, "//"); idx != -1 {
		host = host[idx+2:]
	}
	if idx := strings.IndexAny(host, "/?#"); idx != -1 {
		host = host[:idx]
	}
	return idReplacer.Replace(host)
}

// URL returns the target URL.
func (t Target) URL() string {
	return t.url
}

// ID returns the filesystem-safe identifier.
func (t Target) ID() string {
	return t.id
}

// String returns the target URL.
func (t Target) String() string {
	return t.url
}

// URLs returns the URLs of the given targets in order.
func URLs(targets []Target) []string {
	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL()
	}
	return urls
}
