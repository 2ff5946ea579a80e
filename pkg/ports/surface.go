package ports

// VideoSurface abstracts the underlying media playback primitive: a
// seekable clock with a playback rate and a paused/playing state.
// It is the fallback output when no decoded frame buffer is available.
type VideoSurface interface {
	// Duration returns the media duration in seconds, or NaN when the
	// duration is not yet known.
	Duration() float64

	// CurrentTime returns the current playback position in seconds.
	CurrentTime() float64

	// SetCurrentTime seeks to the given position in seconds.
	SetCurrentTime(t float64)

	// PlaybackRate returns the current playback rate multiplier.
	PlaybackRate() float64

	// SetPlaybackRate sets the playback rate multiplier. Negative rates
	// are not supported by any known playback primitive.
	SetPlaybackRate(rate float64)

	// Play resumes playback at the current rate.
	Play()

	// Pause halts playback.
	Pause()

	// Paused reports whether playback is halted.
	Paused() bool

	// Size returns the natural (intrinsic) video dimensions in pixels,
	// or zeros when unknown.
	Size() (width, height int)

	// Reload resets the surface to its initial loaded state. Used after
	// a failed decode attempt before falling back to direct control.
	Reload() error
}
