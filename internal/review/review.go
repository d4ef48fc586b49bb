// Package review defines the normalized review model and the normalizer
// that coerces raw store payloads into it.
package review

import (
	"strings"
	"time"
)

// Review is a single normalized app-store review. Rating is always in
// [1,5] and Date is always valid after normalization.
type Review struct {
	ID      string
	Title   string
	Body    string
	Rating  int
	Date    time.Time
	Version string
	Author  string
}

// Text returns title and body joined for keyword matching, lowercased.
func (r Review) Text() string {
	if r.Title == "" {
		return strings.ToLower(r.Body)
	}
	return strings.ToLower(r.Title + " " + r.Body)
}

// WordCount counts whitespace-separated tokens in title plus body.
func (r Review) WordCount() int {
	return len(strings.Fields(r.Title)) + len(strings.Fields(r.Body))
}

// IsPain reports whether the rating marks the review as negative.
func (r Review) IsPain() bool {
	return r.Rating <= 2
}
