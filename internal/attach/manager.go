// Package attach validates and stages candidate image files for a message,
// and manages local preview lifetimes.
package attach

import (
	"fmt"
	"strings"
	"time"
)

// Staging limits.
const (
	MaxCount = 3
	MaxSize  = 5 << 20 // 5 MB
)

// NoticeDuration is how long an aggregated rejection notice stays visible
// before auto-dismissing.
const NoticeDuration = 3800 * time.Millisecond

var allowedTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

// File is a candidate attachment at staging time.
type File struct {
	Name         string
	Size         int64
	LastModified int64 // epoch millis
	ContentType  string
	Data         []byte
}

// equal reports the duplicate rule: same name, size and last-modified.
func (f File) equal(other File) bool {
	return f.Name == other.Name && f.Size == other.Size && f.LastModified == other.LastModified
}

// Rejections aggregates why candidates were turned away. Duplicates are
// skipped silently and never counted here.
type Rejections struct {
	Type      int
	Size      int
	OverLimit int
}

// Total returns the number of rejected candidates.
func (r Rejections) Total() int {
	return r.Type + r.Size + r.OverLimit
}

// Notice renders the aggregated rejection message shown to the user, or ""
// when nothing was rejected.
func (r Rejections) Notice() string {
	if r.Total() == 0 {
		return ""
	}
	var parts []string
	if r.Type > 0 {
		parts = append(parts, fmt.Sprintf("형식 제외 %d개", r.Type))
	}
	if r.Size > 0 {
		parts = append(parts, fmt.Sprintf("5MB 초과 %d개", r.Size))
	}
	if r.OverLimit > 0 {
		parts = append(parts, fmt.Sprintf("최대 %d개 초과 %d개", MaxCount, r.OverLimit))
	}
	return "이미지 제외: " + strings.Join(parts, ", ")
}

// Stage filters candidates against the staged list. Checks run in order per
// candidate: content type, size, the combined count cap, then silent
// duplicate skip (same name+size+lastModified against staged or the batch so
// far). The caller merges accepted into its staged list, truncated to
// MaxCount.
func Stage(candidates, staged []File) ([]File, Rejections) {
	var accepted []File
	var rej Rejections

	for _, f := range candidates {
		if _, ok := allowedTypes[f.ContentType]; !ok {
			rej.Type++
			continue
		}
		if f.Size > MaxSize {
			rej.Size++
			continue
		}
		if len(staged)+len(accepted) >= MaxCount {
			rej.OverLimit++
			continue
		}
		if containsDup(staged, f) || containsDup(accepted, f) {
			continue
		}
		accepted = append(accepted, f)
	}

	return accepted, rej
}

// Merge appends accepted files to staged, truncated to MaxCount.
func Merge(staged, accepted []File) []File {
	merged := append(append([]File(nil), staged...), accepted...)
	if len(merged) > MaxCount {
		merged = merged[:MaxCount]
	}
	return merged
}

func containsDup(files []File, f File) bool {
	for _, existing := range files {
		if existing.equal(f) {
			return true
		}
	}
	return false
}
