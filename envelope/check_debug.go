//go:build envdebug

package envelope

import "fmt"

func invalidOvershoot(ratio float64) {
	panic(fmt.Sprintf("envelope: overshoot ratio must be greater than 1, got %v", ratio))
}
