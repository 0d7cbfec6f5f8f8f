package viewer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/psys/renderer"
)

// terminalProjection fits the configured screen height into h rows and
// puts the origin where the window would.
func (v *Viewer) terminalProjection(w, h int) renderer.Projection {
	rc := v.cfg.Renderer
	scale := float32(rc.PixelsPerUnit) * float32(h) / v.cfg.Derived.ScreenH32
	return renderer.Projection{
		Scale:   scale,
		OriginX: float32(w) * float32(rc.OriginX),
		OriginY: float32(h) * float32(rc.OriginY),
		FlipY:   rc.FlipY,
	}
}

// RunTerminal plays the effect in screen until Esc, q or Ctrl-C. The
// screen is initialised here and finalised on return.
func (v *Viewer) RunTerminal(screen tcell.Screen) error {
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialising terminal: %w", err)
	}
	term := renderer.NewTerminal(screen, v.terminalProjection(screen.Size()))
	defer term.Close()

	fps := max(v.cfg.Screen.TargetFPS, 1)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleTerminalKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				term.Projection = v.terminalProjection(screen.Size())
				screen.Sync()
			}

		case now := <-ticker.C:
			if v.widget.Process(now) > 0 {
				v.flushTelemetry()
			}
			term.BeginFrame()
			v.widget.Draw(term)
			v.drawTerminalStatus(screen)
			term.EndFrame()
		}
	}
}

// handleTerminalKey applies a key press. Returns false to quit.
func (v *Viewer) handleTerminalKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			v.widget.SetRunning(!v.widget.Running())
		case 'r':
			if err := v.Reload(); err != nil {
				slog.Error("reload failed", "error", err)
			}
		case ',':
			v.nudgeTimeScale(0.8)
		case '.':
			v.nudgeTimeScale(1.25)
		}
	}
	return true
}

func (v *Viewer) drawTerminalStatus(screen tcell.Screen) {
	text := fmt.Sprintf(" %s  step %d  particles %d  [space] run/stop [r] reload [q] quit ",
		v.opts.EffectName, v.widget.Steps(), v.widget.ParticleCount())
	style := tcell.StyleDefault.Reverse(true)
	for i, r := range text {
		screen.SetContent(i, 0, r, nil, style)
	}
}
