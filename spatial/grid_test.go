package spatial

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/broth/geo"
)

func TestRebuildNoStaleEntries(t *testing.T) {
	g := NewGrid[int](100, 100, 10)

	g.Rebuild(map[int]geo.Vec2{
		1: {X: 5, Y: 5},
		2: {X: 95, Y: 95},
	})
	if g.Len() != 2 {
		t.Fatalf("Len after first rebuild = %d, want 2", g.Len())
	}

	// Second rebuild with different items must not keep the old ones.
	g.Rebuild(map[int]geo.Vec2{
		3: {X: 50, Y: 50},
	})
	if g.Len() != 1 {
		t.Fatalf("Len after second rebuild = %d, want 1", g.Len())
	}

	got := g.Query(geo.Vec2{X: 5, Y: 5}, 15)
	for _, item := range got {
		if item == 1 || item == 2 {
			t.Errorf("stale item %d returned after rebuild", item)
		}
	}
}

func TestRebuildEachItemInOneCell(t *testing.T) {
	g := NewGrid[int](100, 100, 10)
	items := map[int]geo.Vec2{}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		items[i] = geo.Vec2{X: rng.Float64() * 100, Y: rng.Float64() * 100}
	}
	g.Rebuild(items)

	if g.Len() != len(items) {
		t.Errorf("Len = %d, want %d (each item in exactly one cell)", g.Len(), len(items))
	}
}

func TestQueryIsSupersetOfToroidalNeighborhood(t *testing.T) {
	const w, h = 100.0, 100.0
	g := NewGrid[int](w, h, 10)
	rng := rand.New(rand.NewSource(42))

	items := map[int]geo.Vec2{}
	for i := 0; i < 200; i++ {
		items[i] = geo.Vec2{X: rng.Float64() * w, Y: rng.Float64() * h}
	}
	g.Rebuild(items)

	queries := []struct {
		name   string
		p      geo.Vec2
		radius float64
	}{
		{"center", geo.Vec2{X: 50, Y: 50}, 20},
		{"origin corner", geo.Vec2{X: 1, Y: 1}, 15},
		{"far corner", geo.Vec2{X: 99, Y: 99}, 15},
		{"edge x", geo.Vec2{X: 0.5, Y: 50}, 25},
		{"edge y", geo.Vec2{X: 50, Y: 99.5}, 25},
	}

	for _, q := range queries {
		t.Run(q.name, func(t *testing.T) {
			got := g.Query(q.p, q.radius)
			inResult := map[int]bool{}
			for _, item := range got {
				inResult[item] = true
			}

			for id, pos := range items {
				if geo.Dist(q.p, pos, w, h) <= q.radius && !inResult[id] {
					t.Errorf("item %d at %v within radius %v of %v but missing from query result",
						id, pos, q.radius, q.p)
				}
			}
		})
	}
}

func TestQueryLargeRadiusReturnsEachItemOnce(t *testing.T) {
	g := NewGrid[int](100, 100, 10)
	items := map[int]geo.Vec2{}
	for i := 0; i < 30; i++ {
		items[i] = geo.Vec2{X: float64(i * 3), Y: float64(i * 3)}
	}
	g.Rebuild(items)

	// Radius larger than the world: the wrapped window covers every cell.
	got := g.Query(geo.Vec2{X: 50, Y: 50}, 500)
	counts := map[int]int{}
	for _, item := range got {
		counts[item]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("item %d returned %d times, want 1", id, n)
		}
	}
	if len(counts) != len(items) {
		t.Errorf("query returned %d distinct items, want %d", len(counts), len(items))
	}
}
