// Package scan integrates an external malware scanner. Scanning is
// advisory: an unavailable scanner reports a skipped result rather than an
// error, and callers treat skipped as clean.
package scan

import "context"

// Result is the scanner's verdict for one file.
// Available=false means no scanner could be reached and no verdict exists;
// callers must treat that as clean.
type Result struct {
	Available  bool
	Infected   bool
	Signatures []string
}

// Scanner checks a file on disk for malware.
type Scanner interface {
	Scan(ctx context.Context, path string) (Result, error)
}

// Disabled is the scanner used when none is configured; every scan is
// skipped.
type Disabled struct{}

func (Disabled) Scan(context.Context, string) (Result, error) {
	return Result{Available: false}, nil
}
