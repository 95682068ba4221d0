// Package detector guesses which check a log file is suited for by sampling
// its lines against the known event formats.
package detector

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/ccollicutt/replaycheck/pkg/parser"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// DefaultSampleSize is the number of lines sampled when none is configured.
const DefaultSampleSize = 100

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of non-blank lines sampled
	MatchedLines int           // Lines matched by the best format
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *LineFormat
	Confidence float64 // 0.0 to 1.0 (share of sampled lines matched)
	MatchCount int
	SampleLine string // First line that matched

	// Column is the most frequent column reported by the format, 0 if none.
	Column int
}

// Detector samples log files to identify their event format.
type Detector struct {
	formats    []*LineFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithFormats replaces the formats tested.
func WithFormats(formats []*LineFormat) Option {
	return func(d *Detector) {
		d.formats = formats
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples the head of a log file and returns detected formats.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines. Blank lines are ignored.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	type formatStats struct {
		format     *LineFormat
		matchCount int
		sampleLine string
		columns    map[int]int
	}

	result := &DetectionResult{}
	stats := make([]*formatStats, len(d.formats))
	for i, f := range d.formats {
		stats[i] = &formatStats{format: f, columns: make(map[int]int)}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.SampledLines++

		for _, s := range stats {
			col, ok := s.format.Match(line)
			if !ok {
				continue
			}
			if s.matchCount == 0 {
				s.sampleLine = line
			}
			s.matchCount++
			if col > 0 {
				s.columns[col]++
			}
		}
	}

	if result.SampledLines == 0 {
		return result
	}

	// Formats are declared most specific first; the index breaks ties.
	for _, s := range stats {
		if s.matchCount == 0 {
			continue
		}
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(result.SampledLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			Column:     mostFrequent(s.columns),
		})
	}
	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})

	if len(result.Matches) > 0 {
		result.MatchedLines = result.Matches[0].MatchCount
	}
	return result
}

func mostFrequent(counts map[int]int) int {
	best, bestCount := 0, 0
	for col, n := range counts {
		if n > bestCount || (n == bestCount && col < best) {
			best, bestCount = col, n
		}
	}
	return best
}

// sampleFile reads up to sampleSize non-blank lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	src := parser.NewFileSource(path)
	defer src.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !line.Truncated && strings.TrimSpace(line.Content) != "" {
			lines = append(lines, line.Content)
		}
	}
	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Recommend returns the check best suited to the sampled file, or false
// when no format matched.
func (r *DetectionResult) Recommend() (reconcile.CheckType, bool) {
	best := r.BestMatch()
	if best == nil {
		return "", false
	}
	return best.Format.Check, true
}
