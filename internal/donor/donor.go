// Package donor decodes the two recognised donor formats into crate-engine
// records: the intermediate driving-sim mod bundle and the sandbox's direct
// text export. Every record is validated before it leaves this package.
package donor

import (
	"fmt"

	"github.com/enginecrane/enginecrane/internal/crate"
)

// Decode dispatches on the donor kind tag supplied by the caller.
func Decode(path string, kind crate.DonorKind) (*crate.Engine, error) {
	switch kind {
	case crate.KindBundle:
		return DecodeBundle(path)
	case crate.KindExport:
		return DecodeExport(path)
	}
	return nil, fmt.Errorf("donor: unknown donor kind %q", kind)
}
