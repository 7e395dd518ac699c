package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRouteString checks the lower-case route names.
func TestRouteString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "found", RouteFound.String())
	assert.Equal(t, "matched", RouteMatched.String())
	assert.Equal(t, "continue", RouteContinue.String())
	assert.Equal(t, "error", RouteError.String())
	assert.Equal(t, "timeout", RouteTimeout.String())
	assert.Equal(t, "interrupted", RouteInterrupted.String())
	assert.Equal(t, "skip", RouteSkip.String())
	assert.Equal(t, "default", RouteDefault.String())
	assert.Equal(t, "Route(0)", Route(0).String())
}

// TestRouteErrorCode checks the codes attached to error-like routes.
func TestRouteErrorCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		route  Route
		stage  Stage
		code   ErrorCode
		hasErr bool
	}{
		{"acquire error", RouteError, StageAcquire, CodeNoSuchAtomic, true},
		{"acquire timeout", RouteTimeout, StageAcquire, CodeNoSuchAtomicWaitTimeout, true},
		{"acquire interrupted", RouteInterrupted, StageAcquire, CodeNoSuchAtomicWaitInterrupted, true},
		{"acquire found", RouteFound, StageAcquire, "", false},
		{"await interrupted", RouteInterrupted, StageAwait, CodeAwaitInterrupted, true},
		{"await timeout", RouteTimeout, StageAwait, "", false},
		{"cas interrupted", RouteInterrupted, StageCompareAndSet, CodeCompareAndSetInterrupted, true},
		{"cas error", RouteError, StageCompareAndSet, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, ok := tc.route.ErrorCode(tc.stage)
			assert.Equal(t, tc.hasErr, ok)
			assert.Equal(t, tc.code, code)

			if ok {
				assert.NotEmpty(t, code.Description())
			}
		})
	}
}
