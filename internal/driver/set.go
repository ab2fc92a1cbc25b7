package driver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Set is a set of categories. The zero value is the empty set.
//
// Lifecycle commands take a Set to decide which categories they touch;
// categories not in the set are left alone.
type Set uint16

// Common sets used by lifecycle commands.
const (
	SetVideo    = Set(1) << CategoryVideo
	SetAudio    = Set(1) << CategoryAudio
	SetInput    = Set(1) << CategoryInput
	SetCamera   = Set(1) << CategoryCamera
	SetLocation = Set(1) << CategoryLocation
	SetMenu     = Set(1) << CategoryMenu

	// SetVideoInput selects the shared video/input context.
	SetVideoInput = SetVideo | SetInput

	// SetAll is every category managed by the lifecycle coordinator.
	SetAll = SetVideo | SetAudio | SetInput | SetCamera | SetLocation | SetMenu
)

// SetOf builds a set from the given categories. Invalid categories are ignored.
func SetOf(categories ...Category) Set {
	var s Set
	for _, c := range categories {
		s = s.With(c)
	}
	return s
}

// ParseSet builds a set from category labels (see ParseCategory). The
// label "all" stands for SetAll.
func ParseSet(labels []string) (Set, error) {
	var s Set
	for _, label := range labels {
		if strings.EqualFold(strings.TrimSpace(label), "all") {
			s |= SetAll
			continue
		}
		c, err := ParseCategory(label)
		if err != nil {
			return 0, err
		}
		s = s.With(c)
	}
	return s, nil
}

// Has reports whether c is in the set.
func (s Set) Has(c Category) bool {
	return c.Valid() && s&(Set(1)<<c) != 0
}

// HasAny reports whether s and other share at least one category.
func (s Set) HasAny(other Set) bool {
	return s&other != 0
}

// With returns a copy of s with c added.
func (s Set) With(c Category) Set {
	if !c.Valid() {
		return s
	}
	return s | Set(1)<<c
}

// Without returns a copy of s with c removed.
func (s Set) Without(c Category) Set {
	if !c.Valid() {
		return s
	}
	return s &^ (Set(1) << c)
}

// Empty reports whether the set has no categories.
func (s Set) Empty() bool {
	return s == 0
}

// Categories returns the members in declaration order.
func (s Set) Categories() []Category {
	var out []Category
	for c := Category(0); c < numCategories; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Labels returns the member labels in declaration order.
func (s Set) Labels() []string {
	cats := s.Categories()
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.String()
	}
	return labels
}

// String renders the set as "video|audio", or "none" when empty.
func (s Set) String() string {
	if s.Empty() {
		return "none"
	}
	return strings.Join(s.Labels(), "|")
}

// MarshalJSON encodes the set as a list of labels.
func (s Set) MarshalJSON() ([]byte, error) {
	labels := s.Labels()
	if labels == nil {
		labels = []string{}
	}
	return json.Marshal(labels)
}

// UnmarshalJSON decodes a list of labels.
func (s *Set) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return fmt.Errorf("decoding driver set: %w", err)
	}
	parsed, err := ParseSet(labels)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
