package driver

import (
	"errors"
	"testing"
)

func newTestEnumerator(t *testing.T) *Enumerator {
	t.Helper()
	e := NewEnumerator()
	if err := e.Register(CategoryVideo, NewStaticRegistry(
		Backend{Name: "gl"},
		Backend{Name: "vulkan"},
		Backend{Name: "sdl2"},
		Backend{Name: "null"},
	)); err != nil {
		t.Fatalf("Register(video) error = %v", err)
	}
	if err := e.Register(CategoryAudio, NewStaticRegistry(
		Backend{Name: "alsa"},
		Backend{Name: "pulse"},
		Backend{Name: ""},
	)); err != nil {
		t.Fatalf("Register(audio) error = %v", err)
	}
	return e
}

func TestEnumerator_Enumerate(t *testing.T) {
	e := newTestEnumerator(t)

	b, ok := e.Enumerate(CategoryVideo, 1)
	if !ok || b.Name != "vulkan" {
		t.Errorf("Enumerate(video, 1) = %+v, %v", b, ok)
	}

	if _, ok := e.Enumerate(CategoryVideo, -1); ok {
		t.Error("negative index should report no backend")
	}
	if _, ok := e.Enumerate(CategoryCamera, 0); ok {
		t.Error("category without registry should report no backend")
	}
}

func TestEnumerator_Monotonic(t *testing.T) {
	e := newTestEnumerator(t)

	for _, c := range []Category{CategoryVideo, CategoryAudio, CategoryCamera} {
		ended := false
		for i := 0; i < 16; i++ {
			b, ok := e.Enumerate(c, i)
			end := !ok || b.Name == ""
			if ended && !end {
				t.Errorf("%s: index %d yielded %q after the end of the list", c, i, b.Name)
			}
			if end {
				ended = true
			}
		}
	}

	// A placeholder ends the selectable list before the registry runs out.
	names := e.Names(CategoryAudio)
	if len(names) != 2 || names[0] != "alsa" || names[1] != "pulse" {
		t.Errorf("Names(audio) = %v, want [alsa pulse]", names)
	}
}

func TestEnumerator_RejectsMalformedRegistry(t *testing.T) {
	tests := []struct {
		name     string
		backends []Backend
		wantErr  error
	}{
		{"case-folded duplicate", []Backend{{Name: "udev"}, {Name: "UDEV"}}, ErrDuplicateBackend},
		{"name after placeholder", []Backend{{Name: "gl"}, {Name: ""}, {Name: "vulkan"}}, ErrNonMonotonicRegistry},
		{"leading placeholder", []Backend{{Name: ""}, {Name: "gl"}}, ErrNonMonotonicRegistry},
		{"trailing placeholders", []Backend{{Name: "gl"}, {Name: ""}, {Name: ""}}, nil},
		{"well formed", []Backend{{Name: "gl"}, {Name: "vulkan"}, {Name: "null"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnumerator()
			err := e.Register(CategoryVideo, NewStaticRegistry(tt.backends...))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Register() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if _, ok := e.Enumerate(CategoryVideo, 0); ok {
				t.Error("rejected registry was installed")
			}
		})
	}
}

func TestResolver_IndexOf(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	tests := []struct {
		name     string
		category Category
		backend  string
		want     int
		wantErr  bool
	}{
		{name: "first", category: CategoryVideo, backend: "gl", want: 0},
		{name: "case insensitive", category: CategoryVideo, backend: "VULKAN", want: 1},
		{name: "sentinel", category: CategoryVideo, backend: "null", want: 3},
		{name: "unknown", category: CategoryVideo, backend: "d3d", wantErr: true},
		{name: "placeholder", category: CategoryAudio, backend: "", wantErr: true},
		{name: "empty category", category: CategoryLocation, backend: "null", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.IndexOf(tt.category, tt.backend)
			if tt.wantErr {
				if !errors.Is(err, ErrBackendNotFound) {
					t.Errorf("IndexOf() error = %v, want ErrBackendNotFound", err)
				}
				if got != -1 {
					t.Errorf("IndexOf() = %d, want -1", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("IndexOf() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IndexOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolver_NextStopsAtNull(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	name := "gl"
	visited := []string{name}
	for i := 0; i < 10; i++ {
		next, err := r.Next(CategoryVideo, name)
		if err != nil {
			if !errors.Is(err, ErrNoNext) {
				t.Fatalf("Next() error = %v, want ErrNoNext", err)
			}
			if next != name {
				t.Errorf("Next() on failure returned %q, want unchanged %q", next, name)
			}
			break
		}
		name = next
		visited = append(visited, name)
	}

	if name != "null" {
		t.Fatalf("cycling ended on %q, want null (visited %v)", name, visited)
	}
	if len(visited) != 4 {
		t.Errorf("visited %v, want 4 entries", visited)
	}

	// Idempotent once at the sentinel.
	for i := 0; i < 3; i++ {
		got, err := r.Next(CategoryVideo, name)
		if err == nil || got != "null" {
			t.Errorf("Next(null) = %q, %v; want null with error", got, err)
		}
	}
}

func TestResolver_NextPastEndWithoutSentinel(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	got, err := r.Next(CategoryAudio, "pulse")
	if !errors.Is(err, ErrNoNext) {
		t.Errorf("Next() error = %v, want ErrNoNext", err)
	}
	if got != "pulse" {
		t.Errorf("Next() = %q, want pulse", got)
	}
}

func TestResolver_PreviousAtFirstFails(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	before := "gl"
	got, err := r.Previous(CategoryVideo, before)
	if !errors.Is(err, ErrNoPrevious) {
		t.Errorf("Previous() error = %v, want ErrNoPrevious", err)
	}
	if got != before {
		t.Errorf("Previous() = %q, want unchanged %q", got, before)
	}

	got, err = r.Previous(CategoryVideo, "missing")
	if err == nil || got != "missing" {
		t.Errorf("Previous(unknown) = %q, %v", got, err)
	}
}

func TestResolver_Previous(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	got, err := r.Previous(CategoryVideo, "null")
	if err != nil {
		t.Fatalf("Previous() error = %v", err)
	}
	if got != "sdl2" {
		t.Errorf("Previous(null) = %q, want sdl2", got)
	}
}

func TestResolver_First(t *testing.T) {
	r := NewResolver(newTestEnumerator(t))

	got, err := r.First(CategoryAudio)
	if err != nil || got != "alsa" {
		t.Errorf("First(audio) = %q, %v", got, err)
	}

	if _, err := r.First(CategoryRecord); !errors.Is(err, ErrNoBackends) {
		t.Errorf("First(record) error = %v, want ErrNoBackends", err)
	}
}
