package particles

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/pthm-cable/psys/node"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("no prototype with that name")
	ErrUnknownKind = errors.New("unknown type")
)

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

// Option configures a Container.
type Option func(*Container)

// WithRand sets the random source shared by every parameter, emitter and
// affector built by the container.
func WithRand(rng *rand.Rand) Option {
	return func(c *Container) { c.rng = rng }
}

// WithSeed seeds a fresh random source.
func WithSeed(seed int64) Option {
	return func(c *Container) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithPhaseTimer reports technique step phases to pt.
func WithPhaseTimer(pt PhaseTimer) Option {
	return func(c *Container) { c.timer = pt }
}

// Container owns the prototype catalog parsed from effect documents and the
// set of active, cloned systems.
type Container struct {
	rng    *rand.Rand
	arena  *Arena
	kinds  *KindRegistry
	logger *slog.Logger
	timer  PhaseTimer

	systems    []*ParticleSystem
	techniques []*Technique
	emitters   []*Emitter
	affectors  []*Affector

	active []*ParticleSystem
}

// NewContainer creates an empty container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		arena: NewArena(),
		kinds: NewKindRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Load builds a container from an effect document and activates its
// systems.
func Load(n node.Node, opts ...Option) (*Container, error) {
	c := NewContainer(opts...)
	if err := c.Build(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Build parses the document into the catalog, resolves every name
// reference, then activates active_systems (default: every system).
func (c *Container) Build(n node.Node) error {
	if !n.IsMap() {
		return n.Errorf(node.ErrType, "expected effect map")
	}

	entries, err := n.Get("emitters").Entries()
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if _, err := c.addEmitter(ent); err != nil {
			return err
		}
	}
	entries, err = n.Get("affectors").Entries()
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if _, err := c.addAffector(ent); err != nil {
			return err
		}
	}
	entries, err = n.Get("techniques").Entries()
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if _, err := c.addTechnique(ent); err != nil {
			return err
		}
	}

	var systems []*ParticleSystem
	if n.Has("systems") {
		entries, err = n.Get("systems").Entries()
		if err != nil {
			return err
		}
		for _, ent := range entries {
			s, err := c.addSystem(ent)
			if err != nil {
				return err
			}
			systems = append(systems, s)
		}
	} else if n.Has("technique") || n.Has("active_techniques") {
		s, err := c.addSystem(node.Entry{Name: "default", Node: n})
		if err != nil {
			return err
		}
		systems = append(systems, s)
	}

	for _, t := range c.techniques {
		if err := t.link(); err != nil {
			return fmt.Errorf("technique %q: %w", t.Name, err)
		}
	}
	for _, s := range c.systems {
		if err := s.link(); err != nil {
			return fmt.Errorf("system %q: %w", s.Name, err)
		}
	}

	names, err := n.Strings("active_systems")
	if err != nil {
		return err
	}
	if names == nil {
		for _, s := range systems {
			names = append(names, s.Name)
		}
	}
	for _, name := range names {
		if _, err := c.Activate(name); err != nil {
			return err
		}
	}

	c.logger.Info("effect loaded",
		"systems", len(c.systems),
		"techniques", len(c.techniques),
		"emitters", len(c.emitters),
		"affectors", len(c.affectors),
		"active", len(c.active),
	)
	return nil
}

func (c *Container) addEmitter(ent node.Entry) (*Emitter, error) {
	e, err := newEmitter(c, ent.Node)
	if err != nil {
		return nil, err
	}
	if e.Name == "" {
		e.Name = ent.Name
	}
	c.registerEmitter(e)
	return e, nil
}

func (c *Container) addAffector(ent node.Entry) (*Affector, error) {
	a, err := newAffector(c, ent.Node)
	if err != nil {
		return nil, err
	}
	if a.Name == "" {
		a.Name = ent.Name
	}
	c.registerAffector(a)
	return a, nil
}

func (c *Container) addTechnique(ent node.Entry) (*Technique, error) {
	t, err := newTechnique(c, ent.Node)
	if err != nil {
		return nil, err
	}
	if t.Name == "" {
		t.Name = ent.Name
	}
	c.registerTechnique(t)
	return t, nil
}

func (c *Container) addSystem(ent node.Entry) (*ParticleSystem, error) {
	s, err := newSystem(c, ent.Node)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = ent.Name
	}
	c.registerSystem(s)
	return s, nil
}

// Names that are already taken keep their first prototype, matching a
// first-match lookup.
func (c *Container) registerEmitter(e *Emitter) {
	if e.Name != "" && c.hasEmitter(e.Name) {
		c.logger.Warn("duplicate emitter name", "emitter", e.Name)
	}
	c.emitters = append(c.emitters, e)
}

func (c *Container) registerAffector(a *Affector) {
	if a.Name != "" && c.hasAffector(a.Name) {
		c.logger.Warn("duplicate affector name", "affector", a.Name)
	}
	c.affectors = append(c.affectors, a)
}

func (c *Container) registerTechnique(t *Technique) {
	if t.Name != "" && slices.ContainsFunc(c.techniques, func(x *Technique) bool { return x.Name == t.Name }) {
		c.logger.Warn("duplicate technique name", "technique", t.Name)
	}
	c.techniques = append(c.techniques, t)
}

func (c *Container) registerSystem(s *ParticleSystem) {
	if s.Name != "" && slices.ContainsFunc(c.systems, func(x *ParticleSystem) bool { return x.Name == s.Name }) {
		c.logger.Warn("duplicate system name", "system", s.Name)
	}
	c.systems = append(c.systems, s)
}

func (c *Container) hasEmitter(name string) bool {
	return slices.ContainsFunc(c.emitters, func(e *Emitter) bool { return e.Name == name })
}

func (c *Container) hasAffector(name string) bool {
	return slices.ContainsFunc(c.affectors, func(a *Affector) bool { return a.Name == name })
}

func find[T any](items []*T, name string, nameOf func(*T) string) (*T, bool) {
	for _, it := range items {
		if nameOf(it) == name {
			return it, true
		}
	}
	return nil, false
}

// CloneSystem deep-copies the named system prototype.
func (c *Container) CloneSystem(name string) (*ParticleSystem, error) {
	s, ok := find(c.systems, name, func(s *ParticleSystem) string { return s.Name })
	if !ok {
		return nil, notFound("system", name)
	}
	return s.clone(), nil
}

// CloneTechnique deep-copies the named technique prototype.
func (c *Container) CloneTechnique(name string) (*Technique, error) {
	t, ok := find(c.techniques, name, func(t *Technique) string { return t.Name })
	if !ok {
		return nil, notFound("technique", name)
	}
	return t.clone(), nil
}

// CloneEmitter copies the named emitter prototype.
func (c *Container) CloneEmitter(name string) (*Emitter, error) {
	e, ok := find(c.emitters, name, func(e *Emitter) string { return e.Name })
	if !ok {
		return nil, notFound("emitter", name)
	}
	return e.clone(), nil
}

// CloneAffector copies the named affector prototype.
func (c *Container) CloneAffector(name string) (*Affector, error) {
	a, ok := find(c.affectors, name, func(a *Affector) string { return a.Name })
	if !ok {
		return nil, notFound("affector", name)
	}
	return a.clone(), nil
}

// MustCloneSystem is like CloneSystem but panics on a missing name.
func (c *Container) MustCloneSystem(name string) *ParticleSystem {
	return must(c.CloneSystem(name))
}

// MustCloneTechnique is like CloneTechnique but panics on a missing name.
func (c *Container) MustCloneTechnique(name string) *Technique {
	return must(c.CloneTechnique(name))
}

// MustCloneEmitter is like CloneEmitter but panics on a missing name.
func (c *Container) MustCloneEmitter(name string) *Emitter {
	return must(c.CloneEmitter(name))
}

// MustCloneAffector is like CloneAffector but panics on a missing name.
func (c *Container) MustCloneAffector(name string) *Affector {
	return must(c.CloneAffector(name))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// CreateSystem parses a system, adds it to the catalog and returns a linked
// prototype. It is not activated.
func (c *Container) CreateSystem(n node.Node) (*ParticleSystem, error) {
	s, err := c.addSystem(node.Entry{Node: n})
	if err != nil {
		return nil, err
	}
	for _, t := range s.techniques {
		if err := t.link(); err != nil {
			return nil, err
		}
	}
	if err := s.link(); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateTechnique parses a technique into the catalog.
func (c *Container) CreateTechnique(n node.Node) (*Technique, error) {
	t, err := c.addTechnique(node.Entry{Node: n})
	if err != nil {
		return nil, err
	}
	return t, t.link()
}

// CreateEmitter parses an emitter into the catalog.
func (c *Container) CreateEmitter(n node.Node) (*Emitter, error) {
	return c.addEmitter(node.Entry{Node: n})
}

// CreateAffector parses an affector into the catalog.
func (c *Container) CreateAffector(n node.Node) (*Affector, error) {
	return c.addAffector(node.Entry{Node: n})
}

// Activate clones the named system into the active set and runs its fast
// forward.
func (c *Container) Activate(name string) (*ParticleSystem, error) {
	s, err := c.CloneSystem(name)
	if err != nil {
		return nil, err
	}
	s.fastForward()
	c.active = append(c.active, s)
	c.logger.Debug("system activated", "system", name, "particles", s.ParticleCount())
	return s, nil
}

// Deactivate removes the first active system called name and releases its
// emitters from the arena. It reports whether one was found.
func (c *Container) Deactivate(name string) bool {
	i := slices.IndexFunc(c.active, func(s *ParticleSystem) bool { return s.Name == name })
	if i < 0 {
		return false
	}
	c.active[i].release()
	c.active = slices.Delete(c.active, i, i+1)
	c.logger.Debug("system deactivated", "system", name)
	return true
}

// Process advances every active system by dt.
func (c *Container) Process(dt float64) {
	for _, s := range c.active {
		s.Process(dt)
	}
}

// ActiveSystems returns the running systems.
func (c *Container) ActiveSystems() []*ParticleSystem { return c.active }

// ParticleCount returns the live particles across active systems.
func (c *Container) ParticleCount() int {
	n := 0
	for _, s := range c.active {
		n += s.ParticleCount()
	}
	return n
}

// Catalog lists prototype names by kind.
type Catalog struct {
	Systems    []string
	Techniques []string
	Emitters   []string
	Affectors  []string
}

// Catalog returns the prototype names in declaration order.
func (c *Container) Catalog() Catalog {
	var cat Catalog
	for _, s := range c.systems {
		cat.Systems = append(cat.Systems, s.Name)
	}
	for _, t := range c.techniques {
		cat.Techniques = append(cat.Techniques, t.Name)
	}
	for _, e := range c.emitters {
		cat.Emitters = append(cat.Emitters, e.Name)
	}
	for _, a := range c.affectors {
		cat.Affectors = append(cat.Affectors, a.Name)
	}
	return cat
}

// Rand returns the container's random source.
func (c *Container) Rand() *rand.Rand { return c.rng }

// Arena returns the emitter arena.
func (c *Container) Arena() *Arena { return c.arena }

// Kinds returns the kind registry.
func (c *Container) Kinds() *KindRegistry { return c.kinds }

// Write serializes the active systems as a document that Build accepts.
func (c *Container) Write() *node.Map {
	m := node.NewMap()
	systems := make([]any, len(c.active))
	names := make([]any, len(c.active))
	for i, s := range c.active {
		systems[i] = s.Write()
		names[i] = s.Name
	}
	m.Set("systems", systems)
	m.Set("active_systems", names)
	return m
}
