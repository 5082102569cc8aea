//go:build !linux && !windows

package identity

import (
	"context"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
)

// Probe has no platform-specific sources here; the gopsutil facts gathered by
// the Collector are all that is reported.
func (p *SystemProbe) Probe(_ context.Context, _ *domains.Snapshot) {
	p.log.Debug().Msg("no platform probe for this operating system")
}
