package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// Stats is the process-wide packet/traffic counter.
var Stats = &stats{}

type stats struct {
	PacketsSent atomic.Int64 // cumulative packets handed to the transport
	PacketsRecv atomic.Int64 // cumulative packets received from the transport
	BytesSent   atomic.Int64 // cumulative bytes written to the data channels
	BytesRecv   atomic.Int64 // cumulative bytes read  from the data channels
	Dropped     atomic.Int64 // cumulative packets dropped for protocol violations
}

func (s *stats) AddSent(n int) { s.PacketsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.PacketsRecv.Add(1); s.BytesRecv.Add(int64(n)) }
func (s *stats) AddDropped()   { s.Dropped.Add(1) }

// StartStatsReporter launches a goroutine that logs session traffic
// statistics every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevIn, prevOut int64
		for {
			select {
			case <-ticker.C:
				in := Stats.BytesRecv.Load()
				out := Stats.BytesSent.Load()
				pIn := Stats.PacketsRecv.Load()
				pOut := Stats.PacketsSent.Load()

				inRate := float64(in-prevIn) / 10.0
				outRate := float64(out-prevOut) / 10.0

				if pIn != prevRecv || pOut != prevSent {
					pterm.DefaultLogger.Info(fmt.Sprintf(
						"In: %s/s (%d pkt) | Out: %s/s (%d pkt) | Dropped: %d",
						formatBytes(inRate), pIn-prevRecv,
						formatBytes(outRate), pOut-prevSent,
						Stats.Dropped.Load(),
					))
				}

				prevIn, prevOut = in, out
				prevRecv, prevSent = pIn, pOut

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed
// width, for example: "99.0   B", " 1.5 KiB", "98.9 GiB".
func formatBytes(b float64) string {
	unitIdx := 0

	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}
