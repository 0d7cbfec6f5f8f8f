package viewer

import "log/slog"

// flushTelemetry checks if the stats window should be flushed and handles
// bookmarks.
func (v *Viewer) flushTelemetry() {
	step := int32(v.widget.Steps())
	if !v.collector.ShouldFlush(step) {
		return
	}

	stats := v.collector.Flush(step, v.widget.Container())
	perfStats := v.perfCollector.Stats()

	if v.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := v.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := v.outputManager.WritePerf(perfStats, stats.WindowEndStep); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range v.bookmarkDetector.Check(stats) {
		if v.opts.LogStats {
			bm.LogBookmark()
		}
		if err := v.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}
