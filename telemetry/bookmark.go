package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSpawnBurst     BookmarkType = "spawn_burst"
	BookmarkQuotaSaturated BookmarkType = "quota_saturated"
	BookmarkDrained        BookmarkType = "drained"
	BookmarkSteadyState    BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Step        int32        `csv:"step"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in an effect's lifetime.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	peakParticles int  // peak live count since the last drain
	saturated     bool // quota_use reached 1 in the previous window
	steadyWindows int  // consecutive windows with a stable live count
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady state detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkSpawnBurst,
		bd.checkQuotaSaturated,
		bd.checkDrained,
		bd.checkSteadyState,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	if stats.Particles > bd.peakParticles {
		bd.peakParticles = stats.Particles
	}
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	n = min(n, count)
	out := make([]WindowStats, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, bd.history[(bd.historyIdx-i+bd.historySize)%bd.historySize])
	}
	return out
}

func (bd *BookmarkDetector) checkSpawnBurst(stats WindowStats) *Bookmark {
	history := bd.recent(bd.historySize)
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Spawned
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Spawned) > avg*2.0 && stats.Spawned >= 10 {
		return &Bookmark{
			Type:        BookmarkSpawnBurst,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Spawned %d is %.1fx average (%.1f)", stats.Spawned, float64(stats.Spawned)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkQuotaSaturated(stats WindowStats) *Bookmark {
	was := bd.saturated
	bd.saturated = stats.QuotaUse >= 1
	if !bd.saturated || was {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkQuotaSaturated,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Particle quota full with %d particles", stats.Particles),
	}
}

func (bd *BookmarkDetector) checkDrained(stats WindowStats) *Bookmark {
	if bd.peakParticles == 0 || stats.Particles > 0 {
		return nil
	}
	peak := bd.peakParticles
	bd.peakParticles = 0
	return &Bookmark{
		Type:        BookmarkDrained,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("All particles expired after a peak of %d", peak),
	}
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	if stats.Particles < 10 {
		bd.steadyWindows = 0
		return nil
	}

	history := bd.recent(4)
	if len(history) < 4 {
		return nil
	}
	counts := make([]float64, len(history))
	for i, h := range history {
		counts[i] = float64(h.Particles)
	}
	mean, variance := stat.PopMeanVariance(counts, nil)

	// CV^2 < 0.04 means CV < 0.2
	if mean > 0 && variance/(mean*mean) < 0.04 {
		bd.steadyWindows++
	} else {
		bd.steadyWindows = 0
	}

	if bd.steadyWindows == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Steady state around %.0f particles over 5+ windows", mean),
		}
	}
	return nil
}
