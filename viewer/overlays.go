package viewer

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// drawHUD shows frame rate, counts and the step phase breakdown in the
// top right corner.
func (v *Viewer) drawHUD() {
	stats := v.perfCollector.Stats()
	x := int32(v.screenWidth) - 230
	y := int32(10)
	line := func(text string, c rl.Color) {
		rl.DrawText(text, x, y, 12, c)
		y += 16
	}

	state := "running"
	if !v.widget.Running() {
		state = "stopped"
	}
	line(fmt.Sprintf("%s  %.0f fps  %s", v.opts.EffectName, stats.FPS, state), rl.Yellow)
	line(fmt.Sprintf("step %d  particles %d", v.widget.Steps(), v.widget.ParticleCount()), rl.RayWhite)
	line(fmt.Sprintf("step avg %s", stats.AvgStepDuration.Round(time.Microsecond)), rl.LightGray)

	for _, name := range stats.Ranked() {
		line(fmt.Sprintf("  %-10s %5.1f%%", name, stats.PhasePct[name]), rl.Gray)
	}

	y += 8
	line("space run/stop  tab panel  r reload", rl.DarkGray)
	line("< > time scale  wheel zoom  rmb move", rl.DarkGray)
}
