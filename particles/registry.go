package particles

// Kind categories.
const (
	CategoryEmitter  = "emitter"
	CategoryAffector = "affector"
	CategoryPhase    = "phase"
)

// Technique step phases, reported to a PhaseTimer.
const (
	PhaseEmit      = "emit"
	PhaseAffect    = "affect"
	PhaseAge       = "age"
	PhaseCull      = "cull"
	PhaseIntegrate = "integrate"
	PhaseUpload    = "upload"
)

// KindInfo describes an emitter or affector type, or a step phase, for
// configuration errors and UI display.
type KindInfo struct {
	ID          string // Configuration "type" value or phase id
	Name        string // Display name
	Description string
	Category    string
}

// KindRegistry holds metadata about every buildable kind.
// This centralizes naming so config errors, the widget and the perf
// tracker stay in sync.
type KindRegistry struct {
	kinds []KindInfo
	byID  map[string]KindInfo
}

// NewKindRegistry creates a registry with all known kinds.
func NewKindRegistry() *KindRegistry {
	reg := &KindRegistry{
		byID: make(map[string]KindInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known kinds to the registry.
// Update this when adding new emitters or affectors.
func (r *KindRegistry) registerDefaults() {
	// Emitters
	r.Register(KindInfo{ID: "point", Name: "Point", Description: "Spawns at the emitter position", Category: CategoryEmitter})
	r.Register(KindInfo{ID: "box", Name: "Box", Description: "Spawns inside an axis-aligned box", Category: CategoryEmitter})
	r.Register(KindInfo{ID: "circle", Name: "Circle", Description: "Spawns on a circle, random or stepped", Category: CategoryEmitter})
	r.Register(KindInfo{ID: "line", Name: "Line", Description: "Spawns along a segment with deviation", Category: CategoryEmitter})
	r.Register(KindInfo{ID: "sphere_surface", Name: "Sphere Surface", Description: "Spawns on a sphere surface", Category: CategoryEmitter})

	// Affectors
	r.Register(KindInfo{ID: "time_colour", Name: "Time Colour", Description: "Blends colour by life progress", Category: CategoryAffector})
	r.Register(KindInfo{ID: "jet", Name: "Jet", Description: "Accelerates along the initial direction", Category: CategoryAffector})
	r.Register(KindInfo{ID: "vortex", Name: "Vortex", Description: "Rotates about the affector position", Category: CategoryAffector})
	r.Register(KindInfo{ID: "gravity", Name: "Gravity", Description: "Attracts toward the affector position", Category: CategoryAffector})
	r.Register(KindInfo{ID: "scale", Name: "Scale", Description: "Grows or shrinks dimensions", Category: CategoryAffector})
	r.Register(KindInfo{ID: "particle_follower", Name: "Particle Follower", Description: "Chains each particle to the previous", Category: CategoryAffector})
	r.Register(KindInfo{ID: "align", Name: "Align", Description: "Orients toward the previous particle", Category: CategoryAffector})
	r.Register(KindInfo{ID: "flock_centering", Name: "Flock Centering", Description: "Steers toward the average position", Category: CategoryAffector})
	r.Register(KindInfo{ID: "black_hole", Name: "Black Hole", Description: "Pulls in and consumes particles", Category: CategoryAffector})
	r.Register(KindInfo{ID: "path_follower", Name: "Path Follower", Description: "Moves along a spline path", Category: CategoryAffector})
	r.Register(KindInfo{ID: "randomiser", Name: "Randomiser", Description: "Jitters direction or position", Category: CategoryAffector})
	r.Register(KindInfo{ID: "sine_force", Name: "Sine Force", Description: "Applies an oscillating force", Category: CategoryAffector})
	r.Register(KindInfo{ID: "linear_force", Name: "Linear Force", Description: "Applies a constant force", Category: CategoryAffector})
	r.Register(KindInfo{ID: "texture_rotator", Name: "Texture Rotator", Description: "Spins particles about +Z", Category: CategoryAffector})
	r.Register(KindInfo{ID: "animation", Name: "Animation", Description: "Steps texture frames by life progress", Category: CategoryAffector})
	r.Register(KindInfo{ID: "turbulence", Name: "Turbulence", Description: "Pushes along a noise field", Category: CategoryAffector})

	// Technique phases
	r.Register(KindInfo{ID: PhaseEmit, Name: "Emit", Description: "Emitters spawn particles", Category: CategoryPhase})
	r.Register(KindInfo{ID: PhaseAffect, Name: "Affect", Description: "Affectors mutate state", Category: CategoryPhase})
	r.Register(KindInfo{ID: PhaseAge, Name: "Age", Description: "Lifetimes count down", Category: CategoryPhase})
	r.Register(KindInfo{ID: PhaseCull, Name: "Cull", Description: "Expired elements are removed", Category: CategoryPhase})
	r.Register(KindInfo{ID: PhaseIntegrate, Name: "Integrate", Description: "Velocity clamp and position update", Category: CategoryPhase})
	r.Register(KindInfo{ID: PhaseUpload, Name: "Upload", Description: "Vertex buffer rebuild", Category: CategoryPhase})
}

// Register adds a kind to the registry.
func (r *KindRegistry) Register(info KindInfo) {
	r.kinds = append(r.kinds, info)
	r.byID[info.ID] = info
}

// Get returns kind info by ID.
func (r *KindRegistry) Get(id string) (KindInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a kind ID.
// Falls back to the ID itself if not found.
func (r *KindRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered kinds.
func (r *KindRegistry) All() []KindInfo {
	return r.kinds
}

// ByCategory returns kinds filtered by category.
func (r *KindRegistry) ByCategory(category string) []KindInfo {
	var result []KindInfo
	for _, info := range r.kinds {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// IDs returns the IDs in category in registration order.
func (r *KindRegistry) IDs(category string) []string {
	var ids []string
	for _, info := range r.kinds {
		if info.Category == category {
			ids = append(ids, info.ID)
		}
	}
	return ids
}
