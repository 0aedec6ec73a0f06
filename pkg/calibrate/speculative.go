// Speculative fits
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package calibrate

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"deltacal/pkg/kinematics"
	"deltacal/pkg/probe"
)

// Outcome is the result of one speculative fit.
type Outcome struct {
	Mask   kinematics.FactorMask
	Result Result
	Err    error
}

// CalibrateEach fits every mask independently against the same probes and
// returns the outcomes in mask order. Fit failures are reported per
// outcome; the returned error is only set when ctx is cancelled, which is
// checked before each fit starts.
func (e *Engine) CalibrateEach(ctx context.Context, initial kinematics.Geometry, probes *probe.Collection, masks []kinematics.FactorMask) ([]Outcome, error) {
	out := make([]Outcome, len(masks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, mask := range masks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Calibrate(initial.Clone(), probes, mask)
			out[i] = Outcome{Mask: mask, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// Best returns the index of the successful outcome with the lowest RMS,
// or -1 when every fit failed.
func Best(outcomes []Outcome) int {
	best := -1
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if best < 0 || o.Result.RMS < outcomes[best].Result.RMS {
			best = i
		}
	}
	return best
}
