package claimcore

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ligun0805/airdrop-claimer/internal/config"
	"github.com/sirupsen/logrus"
)

var ErrEmptyKeyList = errors.New("key list is empty")

// KeyProcessor is implemented by *Processor.
type KeyProcessor interface {
	Process(ctx context.Context, rawKey string, index, total int) Outcome
}

// Recorder observes outcomes; internal/metrics implements it.
type Recorder interface {
	ObserveOutcome(o Outcome, elapsed time.Duration)
	ObserveBatch(r BatchResult)
}

// Runner walks the key list strictly one key at a time: the wallet's confirmation UI
// supports a single active session.
type Runner struct {
	Processor KeyProcessor
	Delay     config.DelayRange
	Rand      *rand.Rand
	Sleep     SleepFunc
	Recorder  Recorder
	Log       logrus.FieldLogger
}

func (r *Runner) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Runner) pause(ctx context.Context) error {
	rng := r.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		r.Rand = rng
	}
	d := r.Delay.Pick(rng)
	r.log().Infof("sleep %ds...", int(d.Round(time.Second)/time.Second))
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// Run processes every key and returns the aggregate. An empty list is a configuration
// error reported before any session is opened. Only ctx cancellation stops a run early.
func (r *Runner) Run(ctx context.Context, keys []string) (BatchResult, error) {
	res := BatchResult{Outcomes: make([]Outcome, 0, len(keys))}
	if len(keys) == 0 {
		return res, ErrEmptyKeyList
	}
	log := r.log()
	log.Infof("Total keys: %d", len(keys))

	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := time.Now()
		out := r.Processor.Process(ctx, k, i+1, len(keys))
		res.Total++
		if out.Success() {
			res.Success++
		}
		res.Outcomes = append(res.Outcomes, out)
		if r.Recorder != nil {
			r.Recorder.ObserveOutcome(out, time.Since(start))
		}
		entry := log.WithField("key", i+1).WithField("outcome", out.Kind.String())
		if out.Success() {
			entry.Info(out.Status())
		} else {
			entry.Warn(out.Status())
		}

		if err := r.pause(ctx); err != nil {
			return res, err
		}
	}

	if r.Recorder != nil {
		r.Recorder.ObserveBatch(res)
	}
	log.WithField("success", res.Success).WithField("total", res.Total).Infof("Done. %s claimed", res)
	return res, nil
}
