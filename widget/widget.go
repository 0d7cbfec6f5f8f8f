// Package widget hosts a particle container on screen: it turns wall time
// into fixed simulation steps, forwards draws to a renderer backend and
// exposes the accessor hooks scripts use to build and tweak effects.
package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
	"github.com/pthm-cable/psys/particles"
	"github.com/pthm-cable/psys/renderer"
	"github.com/pthm-cable/psys/simple"
	"github.com/pthm-cable/psys/telemetry"
)

var (
	// ErrNoSystem is returned by hooks when no system is active.
	ErrNoSystem = errors.New("no active particle system")
	// ErrNoEmitter is returned by emitter hooks when the active system has
	// no emitter.
	ErrNoEmitter = errors.New("active system has no emitter")
	// ErrWrongKind is returned when a hook targets an element of another type.
	ErrWrongKind = errors.New("element does not support this hook")
)

// Option configures a Widget.
type Option func(*Widget)

// WithStepTime sets the fixed simulation step in seconds.
func WithStepTime(dt float64) Option {
	return func(w *Widget) {
		if dt > 0 {
			w.stepTime = dt
		}
	}
}

// WithMaxSteps caps the steps run by one Process call.
func WithMaxSteps(n int) Option {
	return func(w *Widget) {
		if n > 0 {
			w.maxSteps = n
		}
	}
}

// WithPerf times every step. The collector should also be the container's
// phase timer so technique phases land in the same sample.
func WithPerf(pc *telemetry.PerfCollector) Option {
	return func(w *Widget) { w.perf = pc }
}

// WithLogger sets the widget's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// hosted is a simple system together with the anchor it follows.
type hosted struct {
	sys    simple.System
	anchor simple.Anchor
}

// Widget owns a container and drives it from wall time.
type Widget struct {
	container *particles.Container
	simples   []hosted

	stepTime float64
	maxSteps int
	running  bool

	last  time.Time
	accum float64
	steps int64

	perf     *telemetry.PerfCollector
	stepOpen bool
	logger   *slog.Logger
}

// New creates a running widget around c.
func New(c *particles.Container, opts ...Option) *Widget {
	w := &Widget{
		container: c,
		stepTime:  1.0 / 50,
		maxSteps:  5,
		running:   true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Container returns the hosted container.
func (w *Widget) Container() *particles.Container { return w.container }

// StepTime returns the fixed step in seconds.
func (w *Widget) StepTime() float64 { return w.stepTime }

// Steps returns the number of steps run so far.
func (w *Widget) Steps() int64 { return w.steps }

// Process runs as many whole steps as the wall time since the last call
// covers, at most the configured maximum. Time beyond the cap is dropped.
// A stopped widget only tracks the clock. Returns the steps run.
func (w *Widget) Process(now time.Time) int {
	if w.last.IsZero() || !w.running {
		w.last = now
		return 0
	}
	w.accum += now.Sub(w.last).Seconds()
	w.last = now

	n := 0
	for w.accum >= w.stepTime && n < w.maxSteps {
		w.Step()
		w.accum -= w.stepTime
		n++
	}
	if n == w.maxSteps && w.accum >= w.stepTime {
		w.logger.Debug("dropping wall time", "seconds", w.accum)
		w.accum = 0
	}
	return n
}

// Step advances every hosted system by one fixed step.
func (w *Widget) Step() {
	if w.perf != nil {
		if w.stepOpen {
			w.perf.EndStep()
		}
		w.perf.StartStep()
		w.stepOpen = true
	}
	w.container.Process(w.stepTime)

	live := w.simples[:0]
	for _, h := range w.simples {
		h.sys.Process(h.anchor)
		if h.sys.Destroyed() {
			w.logger.Debug("simple system destroyed")
			continue
		}
		live = append(live, h)
	}
	clear(w.simples[len(live):])
	w.simples = live
	w.steps++
}

// Draw sends every technique and simple system batch to b. Nothing is drawn
// while the widget is stopped. Draw time is charged to the last step.
func (w *Widget) Draw(b renderer.Backend) {
	if !w.running {
		return
	}
	if w.perf != nil && w.stepOpen {
		w.perf.StartPhase(telemetry.PhaseDraw)
	}
	for _, s := range w.container.ActiveSystems() {
		for _, t := range s.Techniques() {
			b.Draw(t.Batch())
		}
	}
	for _, h := range w.simples {
		b.Draw(h.sys.Batch())
	}
	if w.perf != nil && w.stepOpen {
		w.perf.EndStep()
		w.stepOpen = false
	}
}

// ParticleCount returns live particles across the container and simple
// systems.
func (w *Widget) ParticleCount() int {
	n := w.container.ParticleCount()
	for _, h := range w.simples {
		n += h.sys.ParticleCount()
	}
	return n
}

// Create builds an element of kind from cfg and returns its name.
// Systems are added to the catalog and activated; techniques, emitters and
// affectors become catalog prototypes. Kinds "simple" and "point" start a
// simple system at a default anchor.
func (w *Widget) Create(kind string, cfg node.Node) (string, error) {
	c := w.container
	switch kind {
	case "system":
		s, err := c.CreateSystem(cfg)
		if err != nil {
			return "", err
		}
		if _, err := c.Activate(s.Name); err != nil {
			return "", err
		}
		return s.Name, nil
	case "technique":
		t, err := c.CreateTechnique(cfg)
		if err != nil {
			return "", err
		}
		return t.Name, nil
	case "emitter":
		e, err := c.CreateEmitter(cfg)
		if err != nil {
			return "", err
		}
		return e.Name, nil
	case "affector":
		a, err := c.CreateAffector(cfg)
		if err != nil {
			return "", err
		}
		return a.Name, nil
	case "simple", "point":
		name, err := cfg.StringOr("id", kind)
		if err != nil {
			return "", err
		}
		s, err := simple.Create(cfg, c.Rand())
		if err != nil {
			return "", err
		}
		w.AddSimple(s, simple.Anchor{FacingRight: true})
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", particles.ErrUnknownKind, kind)
}

// AddSimple hosts s, attached to anchor.
func (w *Widget) AddSimple(s simple.System, anchor simple.Anchor) {
	w.simples = append(w.simples, hosted{sys: s, anchor: anchor})
}

// SetAnchor moves every hosted simple system's anchor.
func (w *Widget) SetAnchor(a simple.Anchor) {
	for i := range w.simples {
		w.simples[i].anchor = a
	}
}

// SimpleSystems returns the hosted simple systems.
func (w *Widget) SimpleSystems() []simple.System {
	out := make([]simple.System, len(w.simples))
	for i, h := range w.simples {
		out[i] = h.sys
	}
	return out
}

// Running reports whether the widget advances and draws.
func (w *Widget) Running() bool { return w.running }

// SetRunning starts or stops the widget. Wall time spent stopped is not
// simulated on restart.
func (w *Widget) SetRunning(on bool) {
	if on && !w.running {
		w.accum = 0
	}
	w.running = on
}

// System returns the first active system.
func (w *Widget) System() (*particles.ParticleSystem, error) {
	active := w.container.ActiveSystems()
	if len(active) == 0 {
		return nil, ErrNoSystem
	}
	return active[0], nil
}

// Emitter returns the first emitter of the first active system.
func (w *Widget) Emitter() (*particles.Emitter, error) {
	s, err := w.System()
	if err != nil {
		return nil, err
	}
	for _, t := range s.Techniques() {
		if es := t.Emitters(); len(es) > 0 {
			return es[0], nil
		}
	}
	return nil, ErrNoEmitter
}

// ScaleTime returns the active system's time scale.
func (w *Widget) ScaleTime() (float64, error) {
	s, err := w.System()
	if err != nil {
		return 0, err
	}
	return s.ScaleTime, nil
}

// SetScaleTime sets the active system's time scale.
func (w *Widget) SetScaleTime(v float64) error {
	s, err := w.System()
	if err != nil {
		return err
	}
	s.ScaleTime = v
	return nil
}

// ScaleDimensions returns the active system's particle size scale.
func (w *Widget) ScaleDimensions() ([3]float64, error) {
	s, err := w.System()
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64(s.Scale), nil
}

// SetScaleDimensions sets the active system's particle size scale.
func (w *Widget) SetScaleDimensions(v [3]float64) error {
	s, err := w.System()
	if err != nil {
		return err
	}
	s.Scale = particles.Vec3(v)
	return nil
}

// EmissionRate returns the active emitter's rate parameter.
func (w *Widget) EmissionRate() (params.Parameter, error) {
	e, err := w.Emitter()
	if err != nil {
		return nil, err
	}
	return e.EmissionRate(), nil
}

// SetEmissionRate replaces the active emitter's rate parameter.
func (w *Widget) SetEmissionRate(p params.Parameter) error {
	e, err := w.Emitter()
	if err != nil {
		return err
	}
	e.SetEmissionRate(p)
	return nil
}

// CircleRadius returns the active emitter's radius. The emitter must be a
// circle emitter.
func (w *Widget) CircleRadius() (params.Parameter, error) {
	e, err := w.Emitter()
	if err != nil {
		return nil, err
	}
	r, ok := e.CircleRadius()
	if !ok {
		return nil, fmt.Errorf("%w: %s emitter has no radius", ErrWrongKind, e.Kind())
	}
	return r, nil
}

// SetCircleRadius replaces the active emitter's radius. Other emitter
// shapes are left alone.
func (w *Widget) SetCircleRadius(p params.Parameter) error {
	e, err := w.Emitter()
	if err != nil {
		return err
	}
	if !e.SetCircleRadius(p) {
		return fmt.Errorf("%w: %s emitter has no radius", ErrWrongKind, e.Kind())
	}
	return nil
}

// EmitterPosition returns the active emitter's position.
func (w *Widget) EmitterPosition() ([3]float64, error) {
	e, err := w.Emitter()
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64(e.Current.Position), nil
}

// SetEmitterPosition moves the active emitter.
func (w *Widget) SetEmitterPosition(p [3]float64) error {
	e, err := w.Emitter()
	if err != nil {
		return err
	}
	e.SetPosition(particles.Vec3(p))
	return nil
}

// PathPoints returns the control points of the first path_follower
// affector of the active system.
func (w *Widget) PathPoints() ([][3]float64, error) {
	a, err := w.pathFollower()
	if err != nil {
		return nil, err
	}
	pts, _ := a.PathPoints()
	return pts, nil
}

// SetPathPoints refits the first path_follower affector of the active
// system.
func (w *Widget) SetPathPoints(pts [][3]float64) error {
	a, err := w.pathFollower()
	if err != nil {
		return err
	}
	if _, err := a.SetPathPoints(pts); err != nil {
		return fmt.Errorf("setting path: %w", err)
	}
	return nil
}

func (w *Widget) pathFollower() (*particles.Affector, error) {
	s, err := w.System()
	if err != nil {
		return nil, err
	}
	for _, t := range s.Techniques() {
		for _, a := range t.Affectors() {
			if _, ok := a.PathPoints(); ok {
				return a, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no path_follower affector", ErrWrongKind)
}

// Write serializes the active systems.
func (w *Widget) Write() *node.Map {
	return w.container.Write()
}
