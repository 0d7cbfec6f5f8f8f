package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_SpawnBurst(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndStep: int32(i * 60), Spawned: 10})
	}

	bookmarks := bd.Check(WindowStats{WindowEndStep: 300, Spawned: 30})
	if !hasBookmark(bookmarks, BookmarkSpawnBurst) {
		t.Error("expected spawn_burst bookmark")
	}
	if bookmarks[0].Step != 300 {
		t.Errorf("expected bookmark at step 300, got %d", bookmarks[0].Step)
	}
}

func TestBookmarkDetector_QuotaSaturated(t *testing.T) {
	bd := NewBookmarkDetector(10)

	uses := []float64{0.5, 1, 1, 0.8, 1}
	want := []bool{false, true, false, false, true}
	for i, use := range uses {
		got := hasBookmark(bd.Check(WindowStats{QuotaUse: use, Particles: 10}), BookmarkQuotaSaturated)
		if got != want[i] {
			t.Errorf("window %d: expected saturated=%v, got %v", i, want[i], got)
		}
	}
}

func TestBookmarkDetector_Drained(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if hasBookmark(bd.Check(WindowStats{Particles: 0}), BookmarkDrained) {
		t.Error("expected no drain before any particle lived")
	}
	bd.Check(WindowStats{Particles: 50})
	bd.Check(WindowStats{Particles: 20})
	if !hasBookmark(bd.Check(WindowStats{Particles: 0}), BookmarkDrained) {
		t.Error("expected drained bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{Particles: 0}), BookmarkDrained) {
		t.Error("expected drained to trigger once")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Four windows of history are needed, then five stable windows.
	for i := 0; i < 12; i++ {
		got := hasBookmark(bd.Check(WindowStats{WindowEndStep: int32(i * 60), Particles: 100 + i%2}), BookmarkSteadyState)
		if got != (i == 8) {
			t.Errorf("window %d: expected steady_state=%v, got %v", i, i == 8, got)
		}
	}
}

func TestBookmarkDetector_RecentIsChronological(t *testing.T) {
	bd := NewBookmarkDetector(5)
	for i := 1; i <= 7; i++ {
		bd.Check(WindowStats{WindowEndStep: int32(i)})
	}
	recent := bd.recent(3)
	for i, want := range []int32{5, 6, 7} {
		if recent[i].WindowEndStep != want {
			t.Errorf("recent[%d] = %d, want %d", i, recent[i].WindowEndStep, want)
		}
	}
}
