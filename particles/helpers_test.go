package particles

import (
	"log/slog"
	"math"
	"testing"

	"github.com/pthm-cable/psys/node"
)

func quietLogger() Option {
	return WithLogger(slog.New(slog.DiscardHandler))
}

func mustParse(t *testing.T, src string) node.Node {
	t.Helper()
	n, err := node.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return n
}

func load(t *testing.T, src string) *Container {
	t.Helper()
	c, err := Load(mustParse(t, src), WithSeed(42), quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func loadErr(t *testing.T, src string) error {
	t.Helper()
	_, err := Load(mustParse(t, src), WithSeed(42), quietLogger())
	return err
}

// firstTechnique returns the first technique of the first active system.
func firstTechnique(t *testing.T, c *Container) *Technique {
	t.Helper()
	if len(c.ActiveSystems()) == 0 {
		t.Fatal("expected an active system")
	}
	ts := c.ActiveSystems()[0].Techniques()
	if len(ts) == 0 {
		t.Fatal("expected a technique")
	}
	return ts[0]
}

// inject places a particle with the given state into the technique pool.
func inject(tech *Technique, p PhysicsParameters) *Particle {
	tech.ensurePool()
	tech.particles = append(tech.particles, Particle{Initial: p, Current: p, UV: FullRect})
	return &tech.particles[len(tech.particles)-1]
}

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func nearVec(a, b Vec3, eps float64) bool {
	return near(a[0], b[0], eps) && near(a[1], b[1], eps) && near(a[2], b[2], eps)
}
