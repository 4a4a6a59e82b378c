package segment

// Defaults tuned for clean, loud, low-noise speech.
const (
	DefaultFrameMs        = 10
	DefaultPaddingMs      = 50
	DefaultVoiceThreshold = 0.9
	DefaultRMSThreshold   = 0.1
	DefaultZCRThreshold   = 0.5
)

type options struct {
	frameMs        int
	sampleRate     int
	paddingMs      int
	voiceThreshold float64
	rmsThreshold   float64
	zcrThreshold   float64
	onDrop         func(Span)
}

func defaultOptions() options {
	return options{
		frameMs:        DefaultFrameMs,
		paddingMs:      DefaultPaddingMs,
		voiceThreshold: DefaultVoiceThreshold,
		rmsThreshold:   DefaultRMSThreshold,
		zcrThreshold:   DefaultZCRThreshold,
	}
}

// Option adjusts a single Filter or FilterFrames call.
type Option func(*options)

// WithFrameDuration sets the frame (and rough analysis window) length in
// milliseconds. Windowed modes accept 10, 20 or 30.
func WithFrameDuration(ms int) Option {
	return func(o *options) { o.frameMs = ms }
}

// WithSampleRate declares the sample rate of the input. It is required for
// [PCM] input without its own rate and must agree with the rate of any other
// input.
func WithSampleRate(hz int) Option {
	return func(o *options) { o.sampleRate = hz }
}

// WithPadding sets the hysteresis window length in milliseconds.
func WithPadding(ms int) Option {
	return func(o *options) { o.paddingMs = ms }
}

// WithVoiceThreshold sets the fraction of window frames that must disagree
// with the current state before it flips. Accepted range is [0.01, 1.0].
func WithVoiceThreshold(t float64) Option {
	return func(o *options) { o.voiceThreshold = t }
}

// WithRMSThreshold sets the normalised RMS above which a rough window is
// active.
func WithRMSThreshold(t float64) Option {
	return func(o *options) { o.rmsThreshold = t }
}

// WithZCRThreshold sets the zero crossing rate above which a rough window is
// active.
func WithZCRThreshold(t float64) Option {
	return func(o *options) { o.zcrThreshold = t }
}

// WithDroppedRunHook registers fn to be called when rough mode drops a
// single-window trailing run.
func WithDroppedRunHook(fn func(Span)) Option {
	return func(o *options) { o.onDrop = fn }
}
