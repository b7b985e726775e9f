package witness

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

var (
	tmpDir string
	store  escrow.Store
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	tmpDir = try.To1(os.MkdirTemp("", "witness-test"))
	store = try.To1(escrow.OpenBolt(filepath.Join(tmpDir, "escrow.bolt")))

	code := m.Run()

	_ = store.Close()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func signAll(_ context.Context, e *kel.Event, wits []string) ([]Receipt, error) {
	rcts := make([]Receipt, 0, len(wits)+1)
	for _, w := range wits {
		rcts = append(rcts, Receipt{Witness: w, Sig: "sig-" + w + e.SAID})
	}
	// not our witness, must be ignored
	rcts = append(rcts, Receipt{Witness: "BStranger", Sig: "sig"})
	return rcts, nil
}

func TestReceiptor_Work(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses("BWit1", "BWit2")))
	try.To(kevers.Append(icp))

	r := NewReceiptor(store, kevers, CollectorFunc(signAll))
	assert.That(!r.Cued(icp.Prefix, 0))
	r.Request(icp.Prefix, 0)
	assert.Equal(r.Pending(), 1)

	assert.NoError(r.Work(context.Background()))
	assert.Equal(r.Pending(), 0)
	assert.That(r.Cued(icp.Prefix, 0))
	assert.Equal(len(r.Cues()), 1)

	wigs := try.To1(store.Wigs(escrow.KeyOf(icp)))
	assert.Equal(len(wigs), 2)
	assert.Equal(Count(wigs, icp.Wits), 2)
}

func TestReceiptor_Work_noWitnesses(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses()))
	try.To(kevers.Append(icp))

	called := false
	r := NewReceiptor(store, kevers, CollectorFunc(
		func(context.Context, *kel.Event, []string) ([]Receipt, error) {
			called = true
			return nil, nil
		}))
	r.Request(icp.Prefix, 0)
	assert.NoError(r.Work(context.Background()))
	assert.That(!called)
	assert.That(r.Cued(icp.Prefix, 0))
}

func TestReceiptor_Work_retry(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses("BWitRetry")))
	try.To(kevers.Append(icp))

	fail := true
	r := NewReceiptor(store, kevers, CollectorFunc(
		func(ctx context.Context, e *kel.Event, wits []string) ([]Receipt, error) {
			if fail {
				return nil, errors.New("witness offline")
			}
			return signAll(ctx, e, wits)
		}))
	r.Request(icp.Prefix, 0)
	assert.Error(r.Work(context.Background()))
	assert.Equal(r.Pending(), 1)
	assert.That(!r.Cued(icp.Prefix, 0))

	fail = false
	assert.NoError(r.Work(context.Background()))
	assert.That(r.Cued(icp.Prefix, 0))

	r.Request("EUnknown", 0)
	for i := 0; i < MaxTries; i++ {
		err := r.Work(context.Background())
		assert.That(errors.Is(err, ErrRequest))
	}
	assert.Equal(r.Pending(), 0)
}

func TestReceiptor_Work_collectorDown(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses("BWitDown")))
	try.To(kevers.Append(icp))

	r := NewReceiptor(store, kevers, CollectorFunc(
		func(context.Context, *kel.Event, []string) ([]Receipt, error) {
			return nil, errors.New("witness offline")
		}))
	r.Request(icp.Prefix, 0)
	for i := 0; i < MaxTries+1; i++ {
		assert.Error(r.Work(context.Background()))
	}
	assert.Equal(r.Pending(), 1)
}

func TestReceiptor_Work_stored(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses("BWitStored")))
	try.To(kevers.Append(icp))

	r := NewReceiptor(store, kevers, Stored)
	r.Request(icp.Prefix, 0)
	assert.NoError(r.Work(context.Background()))
	assert.That(!r.Cued(icp.Prefix, 0))
	assert.Equal(r.Pending(), 1)

	try.To(store.AddWig(escrow.KeyOf(icp), "BWitStored", "sig"))
	assert.NoError(r.Work(context.Background()))
	assert.That(r.Cued(icp.Prefix, 0))
	assert.Equal(r.Pending(), 0)

	r.Request(icp.Prefix, 0)
	assert.Equal(r.Pending(), 0)
}

func TestReceiptor_Work_lateReceipts(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := kel.NewKevers()
	icp := try.To1(kel.Incept(kel.WithWitnesses("BWitLate1", "BWitLate2")))
	try.To(kevers.Append(icp))

	r := NewReceiptor(store, kevers, Stored)
	r.Request(icp.Prefix, 0)
	r.Request(icp.Prefix, 0)
	assert.Equal(r.Pending(), 1)

	try.To(store.AddWig(escrow.KeyOf(icp), "BWitLate1", "sig"))
	for i := 0; i < 2*MaxTries; i++ {
		assert.NoError(r.Work(context.Background()))
	}
	assert.Equal(r.Pending(), 1)
	assert.That(!r.Cued(icp.Prefix, 0))

	try.To(store.AddWig(escrow.KeyOf(icp), "BWitLate2", "sig"))
	assert.NoError(r.Work(context.Background()))
	assert.Equal(r.Pending(), 0)
	assert.That(r.Cued(icp.Prefix, 0))
}
