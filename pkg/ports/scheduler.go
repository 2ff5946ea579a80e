package ports

// CancelFunc cancels one scheduled continuation. Calling it after the
// continuation ran, or more than once, is harmless.
type CancelFunc func()

// FrameScheduler schedules work for the next display frame. Each call
// schedules exactly one invocation of fn; the returned CancelFunc
// prevents that invocation if it has not happened yet.
type FrameScheduler interface {
	Schedule(fn func()) CancelFunc
}
