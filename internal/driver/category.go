package driver

import (
	"fmt"
	"strings"
)

// Category identifies one of the fixed backend kinds.
type Category uint8

// Backend categories. The set is closed; adding one means adding a label below.
const (
	CategoryVideo Category = iota
	CategoryAudio
	CategoryInput
	CategoryJoypad
	CategoryCamera
	CategoryLocation
	CategoryMenu
	CategoryResampler
	CategoryRecord

	numCategories
)

// categoryLabels maps each category to its config label.
var categoryLabels = [numCategories]string{
	CategoryVideo:     "video",
	CategoryAudio:     "audio",
	CategoryInput:     "input",
	CategoryJoypad:    "input_joypad",
	CategoryCamera:    "camera",
	CategoryLocation:  "location",
	CategoryMenu:      "menu",
	CategoryResampler: "audio_resampler",
	CategoryRecord:    "record",
}

// labelIndex is the reverse of categoryLabels, built once at init.
var labelIndex = func() map[string]Category {
	m := make(map[string]Category, numCategories)
	for c, label := range categoryLabels {
		m[label] = Category(c)
	}
	return m
}()

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	all := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		all = append(all, c)
	}
	return all
}

// String returns the config label of the category (e.g. "input_joypad").
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryLabels[c]
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c < numCategories
}

// MarshalText implements encoding.TextMarshaler so categories serialise as
// their labels in JSON and YAML.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category label.
//
// Matching is case-insensitive and accepts the bare label ("video"), the
// underscored driver form ("video_driver") and the spaced form
// ("video driver"). Returns ErrUnknownCategory for anything else.
func ParseCategory(label string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.TrimSuffix(key, "_driver")

	if c, ok := labelIndex[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, label)
}
