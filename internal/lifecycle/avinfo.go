package lifecycle

// Geometry is the negotiated video geometry.
type Geometry struct {
	BaseWidth   int     `json:"base_width" yaml:"base_width"`
	BaseHeight  int     `json:"base_height" yaml:"base_height"`
	MaxWidth    int     `json:"max_width" yaml:"max_width"`
	MaxHeight   int     `json:"max_height" yaml:"max_height"`
	AspectRatio float64 `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// Timing is the negotiated content timing.
type Timing struct {
	FPS        float64 `json:"fps" yaml:"fps"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// AVInfo is the process-wide system audio/video information shared by the
// video and audio subsystems. Only UPDATE_SYSTEM_AV_INFO replaces it.
type AVInfo struct {
	Geometry Geometry `json:"geometry" yaml:"geometry"`
	Timing   Timing   `json:"timing" yaml:"timing"`
}
