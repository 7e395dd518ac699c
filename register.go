// Package atomics registers the k6/x/atomics extension with the k6 runtime.
package atomics

import (
	"go.k6.io/k6/js/modules"

	"github.com/oshokin/xk6-atomics/atomics"
)

// init registers the atomics module with the k6 runtime.
func init() {
	modules.Register("k6/x/atomics", atomics.New())
}
