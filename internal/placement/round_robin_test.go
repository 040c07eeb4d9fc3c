package placement

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Cafe137/swarm-chunked-upload/internal/repository/objectstore"
)

func TestRoundRobinPlacer(t *testing.T) {
	p := NewRoundRobinPlacer()
	a := objectstore.NewLocalObjectRepository(t.TempDir(), "")
	b := objectstore.NewLocalObjectRepository(t.TempDir(), "")

	if _, _, err := p.Place(0); err == nil {
		t.Error("Place() with no targets succeeded")
	}

	if err := p.RegisterTarget("a", a); err != nil {
		t.Fatal(err)
	}
	if err := p.RegisterTarget("b", b); err != nil {
		t.Fatal(err)
	}
	if err := p.RegisterTarget("a", b); err == nil {
		t.Error("registering a duplicate target succeeded")
	}

	var got []string
	for i := 0; i < 5; i++ {
		name, _, err := p.Place(i)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, name)
	}
	if diff := cmp.Diff([]string{"a", "b", "a", "b", "a"}, got); diff != "" {
		t.Errorf("placement mismatch (-want +got):\n%s", diff)
	}

	_, repo, _ := p.Place(3)
	if repo != b {
		t.Error("Place(3) returned the wrong repository")
	}
	if _, _, err := p.Place(-1); err == nil {
		t.Error("Place(-1) succeeded")
	}

	if diff := cmp.Diff([]string{"a", "b"}, p.Targets()); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}
	if r, err := p.Target("b"); err != nil || r != b {
		t.Errorf("Target(b) = %v, %v", r, err)
	}
	if _, err := p.Target("c"); err == nil {
		t.Error("Target(c) succeeded")
	}
}
