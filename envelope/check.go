//go:build !envdebug

package envelope

// invalidOvershoot is called before an out-of-range overshoot ratio is clamped.
// Build with -tags envdebug to turn it into a panic.
func invalidOvershoot(ratio float64) {}
