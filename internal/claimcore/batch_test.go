package claimcore

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ligun0805/airdrop-claimer/internal/config"
)

type recorder struct {
	outcomes []Outcome
	batches  []BatchResult
}

func (r *recorder) ObserveOutcome(o Outcome, _ time.Duration) { r.outcomes = append(r.outcomes, o) }
func (r *recorder) ObserveBatch(b BatchResult)                { r.batches = append(r.batches, b) }

func TestRunMixedBatch(t *testing.T) {
	eligible, _ := newKeyHex(t)
	ineligible, _ := newKeyHex(t)
	f := &fakeFactory{pages: []*fakePage{
		{status: 200, body: eligibleBody},
		{status: 404},
	}}
	sl := &sleepRecorder{}
	rec := &recorder{}
	r := &Runner{
		Processor: newTestProcessor(f, healthyChain(), &fakeContract{}),
		Delay:     config.DelayRange{Min: 50 * time.Second, Max: 100 * time.Second},
		Rand:      rand.New(rand.NewSource(1)),
		Sleep:     sl.Sleep,
		Recorder:  rec,
		Log:       quietLogger(),
	}

	res, err := r.Run(context.Background(), []string{"garbage", eligible, ineligible})
	if err != nil {
		t.Fatal(err)
	}
	if res.String() != "1/3" {
		t.Errorf("result = %s, want 1/3", res)
	}
	want := []OutcomeKind{OutcomeSkipped, OutcomeSubmitted, OutcomeNotEligible}
	for i, k := range want {
		if res.Outcomes[i].Kind != k {
			t.Errorf("outcome[%d] = %s, want %s", i, res.Outcomes[i].Kind, k)
		}
	}
	if len(f.sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(f.sessions))
	}
	for i, s := range f.sessions {
		if s.closed != 1 {
			t.Errorf("session %d closed %d times", i, s.closed)
		}
	}
	if len(sl.calls) != 3 {
		t.Errorf("pauses = %d, want 3", len(sl.calls))
	}
	for _, d := range sl.calls {
		if d < 50*time.Second || d > 100*time.Second {
			t.Errorf("pause %v outside [50s, 100s]", d)
		}
	}
	if len(rec.outcomes) != 3 || len(rec.batches) != 1 || rec.batches[0].Success != 1 {
		t.Errorf("recorder = %+v", rec)
	}
}

func TestRunEmptyKeyList(t *testing.T) {
	f := &fakeFactory{}
	r := &Runner{Processor: newTestProcessor(f, healthyChain(), &fakeContract{}), Sleep: noSleep, Log: quietLogger()}
	res, err := r.Run(context.Background(), nil)
	if !errors.Is(err, ErrEmptyKeyList) {
		t.Fatalf("err = %v", err)
	}
	if res.Total != 0 || len(f.sessions) != 0 {
		t.Errorf("result = %+v sessions = %d", res, len(f.sessions))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFactory{}
	calls := 0
	r := &Runner{
		Processor: newTestProcessor(f, healthyChain(), &fakeContract{}),
		Sleep: func(context.Context, time.Duration) error {
			calls++
			cancel()
			return nil
		},
		Log: quietLogger(),
	}
	a, _ := newKeyHex(t)
	b, _ := newKeyHex(t)
	res, err := r.Run(ctx, []string{a, b})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if res.Total != 1 || calls != 1 {
		t.Errorf("total = %d pauses = %d", res.Total, calls)
	}
}
