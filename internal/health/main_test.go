//go:build !integration

package health

import (
	"testing"

	"go.uber.org/goleak"
)

// Container tests leave reaper goroutines behind, so the leak check only
// guards the unit tests.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
