package usecases_test

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/samirrijal/navfence/internal/core/domain"
	"github.com/samirrijal/navfence/internal/core/usecases"
)

func square(size float64) []domain.Vec3 {
	return []domain.Vec3{
		{X: -size, Y: 0, Z: -size},
		{X: size, Y: 0, Z: -size},
		{X: size, Y: 0, Z: size},
		{X: -size, Y: 0, Z: size},
	}
}

func activeNames(r *usecases.ZoneRegistry) []string {
	var names []string
	for z := range r.ListActiveValid() {
		names = append(names, z.Name)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestZoneRegistry_AddDefaults(t *testing.T) {
	r := usecases.NewZoneRegistry()
	pts := square(2)
	h := r.Add("A", pts)

	if h.IsZero() {
		t.Fatal("expected non-zero handle")
	}
	z, err := r.At(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !z.Active {
		t.Error("new zone should be active")
	}
	if z.Handle != h {
		t.Errorf("expected handle %s, got %s", h, z.Handle)
	}

	// The registry keeps its own copy of the points.
	pts[0].X = 99
	z, _ = r.At(0)
	if z.Points[0].X != -2 {
		t.Errorf("registry aliased caller slice: got x=%v", z.Points[0].X)
	}
}

func TestZoneRegistry_AddAllowsDuplicatesAndDegenerate(t *testing.T) {
	r := usecases.NewZoneRegistry()
	h1 := r.Add("dup", square(1))
	h2 := r.Add("dup", square(1))
	r.Add("line", square(1)[:2])
	r.Add("empty", nil)

	if h1 == h2 {
		t.Error("handles must be distinct")
	}
	if r.Len() != 4 {
		t.Fatalf("expected 4 zones, got %d", r.Len())
	}
	if got := activeNames(r); !equalNames(got, []string{"dup", "dup"}) {
		t.Errorf("unexpected active set %v", got)
	}
}

func TestZoneRegistry_ListActiveValid_InsertionOrder(t *testing.T) {
	r := usecases.NewZoneRegistry()
	for _, n := range []string{"c", "a", "b"} {
		r.Add(n, square(1))
	}
	if got := activeNames(r); !equalNames(got, []string{"c", "a", "b"}) {
		t.Errorf("expected insertion order, got %v", got)
	}
}

func TestZoneRegistry_ListActiveValid_Restartable(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("A", square(1))
	seq := r.ListActiveValid()

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if count() != 1 {
		t.Fatal("expected 1 zone on first pass")
	}

	// Not cached: a later mutation is visible on the next pass of the same sequence.
	r.Add("B", square(1))
	if got := count(); got != 2 {
		t.Errorf("expected 2 zones on second pass, got %d", got)
	}
	_ = r.ToggleAt(0)
	if got := count(); got != 1 {
		t.Errorf("expected 1 zone after toggle, got %d", got)
	}
}

func TestZoneRegistry_ListActiveValid_EarlyBreak(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("A", square(1))
	r.Add("B", square(1))
	for z := range r.ListActiveValid() {
		if z.Name != "A" {
			t.Errorf("expected A first, got %s", z.Name)
		}
		break
	}
	// Lock must have been released.
	r.Add("C", square(1))
}

func TestZoneRegistry_ValidityRecomputedOnRead(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("grow", []domain.Vec3{{X: 0}, {X: 1}})
	if len(activeNames(r)) != 0 {
		t.Fatal("two-point zone must not be listed")
	}
	if err := r.AppendPointAt(0, domain.Vec3{Z: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(activeNames(r)) != 1 {
		t.Fatal("zone should be listed once it has three points")
	}
	if err := r.RemovePointAt(0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(activeNames(r)) != 0 {
		t.Fatal("zone should drop out after shrinking")
	}
}

func TestZoneRegistry_IndexSafety(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("A", square(1))
	r.Add("B", square(2))
	before := r.Snapshot()

	for _, i := range []int{-100, -1, 2, 3, 1 << 30} {
		if err := r.RemoveAt(i); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
		if err := r.ToggleAt(i); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("ToggleAt(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
		if err := r.SetPointsAt(i, nil); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("SetPointsAt(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
		if _, err := r.At(i); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("At(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
	}
	if err := r.RemovePointAt(0, 4); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("RemovePointAt: expected ErrIndexOutOfRange, got %v", err)
	}

	after := r.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("zone count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].Name != before[i].Name || after[i].Active != before[i].Active || len(after[i].Points) != len(before[i].Points) {
			t.Errorf("zone %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestZoneRegistry_EmptyIndexSafety(t *testing.T) {
	r := usecases.NewZoneRegistry()
	if err := r.RemoveAt(0); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := r.ToggleAt(0); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestZoneRegistry_RemoveShiftsIndices(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("A", square(1))
	hb := r.Add("B", square(1))
	r.Add("C", square(1))

	if err := r.RemoveAt(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := activeNames(r); !equalNames(got, []string{"B", "C"}) {
		t.Errorf("unexpected zones %v", got)
	}
	i, err := r.IndexOf(hb)
	if err != nil || i != 0 {
		t.Errorf("expected B at index 0, got %d (%v)", i, err)
	}
}

func TestZoneRegistry_HandleOperations(t *testing.T) {
	r := usecases.NewZoneRegistry()
	ha := r.Add("A", square(1))
	hb := r.Add("B", square(1))

	if err := r.Toggle(hb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := activeNames(r); !equalNames(got, []string{"A"}) {
		t.Errorf("unexpected active set %v", got)
	}
	if err := r.SetPoints(ha, square(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Rename(hb, "parked"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z, _ := r.Get(hb); z.Name != "parked" {
		t.Errorf("Rename not applied, got %q", z.Name)
	}
	z, err := r.Get(ha)
	if err != nil || z.Points[0].X != -3 {
		t.Errorf("SetPoints not applied: %+v (%v)", z, err)
	}
	if err := r.Remove(ha); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A removed handle stays dead even though index 0 is now occupied.
	if err := r.Toggle(ha); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
	if _, err := r.IndexOf(ha); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 zone, got %d", r.Len())
	}
}

func TestZoneRegistry_RejectsNonFinitePoints(t *testing.T) {
	r := usecases.NewZoneRegistry()
	h := r.Add("A", square(1))

	bad := []domain.Vec3{{X: 0}, {X: math.NaN()}, {X: 1, Z: 1}}
	if err := r.SetPointsAt(0, bad); !errors.Is(err, domain.ErrInvalidPoint) {
		t.Errorf("SetPointsAt: expected ErrInvalidPoint, got %v", err)
	}
	if err := r.SetPoints(h, bad); !errors.Is(err, domain.ErrInvalidPoint) {
		t.Errorf("SetPoints: expected ErrInvalidPoint, got %v", err)
	}
	if err := r.AppendPointAt(0, domain.Vec3{Y: math.Inf(-1)}); !errors.Is(err, domain.ErrInvalidPoint) {
		t.Errorf("AppendPointAt: expected ErrInvalidPoint, got %v", err)
	}

	z, _ := r.At(0)
	if len(z.Points) != 4 || z.Points[0] != square(1)[0] {
		t.Errorf("rejected edits must leave the polygon alone, got %+v", z.Points)
	}
}

func TestZoneRegistry_ReplaceAssignsHandles(t *testing.T) {
	r := usecases.NewZoneRegistry()
	keep := domain.NewZoneHandle()
	r.Replace([]domain.Zone{
		{Handle: keep, Name: "kept", Points: square(1), Active: true},
		{Name: "fresh", Points: square(1), Active: false},
	})
	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(snap))
	}
	if snap[0].Handle != keep {
		t.Error("existing handle was not preserved")
	}
	if snap[1].Handle.IsZero() {
		t.Error("missing handle was not assigned")
	}
	if got := activeNames(r); !equalNames(got, []string{"kept"}) {
		t.Errorf("unexpected active set %v", got)
	}
}

func TestZoneRegistry_SnapshotIsDeepCopy(t *testing.T) {
	r := usecases.NewZoneRegistry()
	r.Add("A", square(1))
	snap := r.Snapshot()
	snap[0].Points[0].X = 42
	snap[0].Active = false

	z, _ := r.At(0)
	if z.Points[0].X == 42 || !z.Active {
		t.Error("snapshot mutation leaked into registry")
	}
}

// Randomized check of the validity invariant: a zone is listed iff it is
// active and has at least three points, whatever order mutations arrive in.
func TestZoneRegistry_ValidityInvariant_RandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := usecases.NewZoneRegistry()

	for step := 0; step < 2000; step++ {
		n := r.Len()
		switch op := rng.Intn(6); {
		case op == 0 || n == 0:
			pts := make([]domain.Vec3, rng.Intn(6))
			r.Add(fmt.Sprintf("z%d", step), pts)
		case op == 1:
			_ = r.RemoveAt(rng.Intn(n+2) - 1)
		case op == 2:
			_ = r.ToggleAt(rng.Intn(n+2) - 1)
		case op == 3:
			_ = r.AppendPointAt(rng.Intn(n), domain.Vec3{X: rng.Float64()})
		case op == 4:
			_ = r.RemovePointAt(rng.Intn(n), rng.Intn(4))
		default:
			_ = r.SetPointsAt(rng.Intn(n), make([]domain.Vec3, rng.Intn(5)))
		}

		var want []string
		for _, z := range r.Snapshot() {
			if z.Active && len(z.Points) >= 3 {
				want = append(want, z.Handle.String())
			}
		}
		var got []string
		for z := range r.ListActiveValid() {
			got = append(got, z.Handle.String())
		}
		if !equalNames(got, want) {
			t.Fatalf("step %d: listed %v, expected %v", step, got, want)
		}
	}
}

func TestZoneRegistry_ConcurrentMutationAndRead(t *testing.T) {
	r := usecases.NewZoneRegistry()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Add(fmt.Sprintf("w%d-%d", w, i), square(1))
				_ = r.ToggleAt(i % 7)
				_ = r.RemoveAt(i % 5)
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			for z := range r.ListActiveValid() {
				if !z.Publishable() {
					t.Errorf("listed non-publishable zone %+v", z)
					return
				}
			}
		}
	}()
	wg.Wait()
}
