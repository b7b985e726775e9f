package kel

import (
	"errors"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

type testSigner struct{}

func (testSigner) Sign(raw []byte) ([]byte, error) {
	return []byte("-AABAA" + Digest(raw)), nil
}

func TestKevers_Append(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := NewKevers()
	icp := try.To1(Incept(WithWitnesses("BWit")))
	try.To(kevers.Append(icp))

	ixn := try.To1(Interact(icp))
	err := kevers.Append(ixn)
	assert.NoError(err)
	err = kevers.Append(ixn)
	assert.That(errors.Is(err, ErrOutOfOrder))

	orphan := try.To1(Interact(try.To1(Incept())))
	err = kevers.Append(orphan)
	assert.That(errors.Is(err, ErrUnknownPrefix))

	ks, ok := kevers.Get(icp.Prefix)
	assert.That(ok)
	assert.Equal(ks.SN(), uint64(1))
	assert.Equal(len(ks.Wits), 1)
	assert.Equal(ks.EventAt(1).SAID, ixn.SAID)
	assert.That(ks.EventAt(2) == nil)
}

func TestKevers_FindAnchoringSealEvent(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	kevers := NewKevers()
	delegator := try.To1(Incept())
	try.To(kevers.Append(delegator))
	delegate := try.To1(Incept(WithDelegator(delegator.Prefix)))
	try.To(kevers.Append(delegate))

	seal := delegate.Seal()
	assert.That(kevers.FindAnchoringSealEvent(delegator.Prefix, seal) == nil)
	assert.That(kevers.FindAnchoringSealEvent("EUnknown", seal) == nil)

	anchor := try.To1(Interact(delegator, WithSeals(seal)))
	try.To(kevers.Append(anchor))

	found := kevers.FindAnchoringSealEvent(delegator.Prefix, seal)
	assert.NotNil(found)
	assert.Equal(found.SAID, anchor.SAID)
}

func TestHab_MakeOwnEvent(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	hby := NewHabery(nil)
	hab := try.To1(hby.Incept("test"))
	assert.That(hby.Has(hab.Pre))
	assert.That(!hab.Group())

	msg := try.To1(hab.MakeOwnEvent(0))
	ks, _ := hab.Kever()
	assert.DeepEqual(msg, ks.Last().Raw)

	hab.Signer = testSigner{}
	msg = try.To1(hab.MakeOwnEvent(0))
	e := try.To1(Parse(msg))
	assert.Equal(e.SAID, hab.Pre)
	assert.Equal(string(msg[e.Size():]), "-AABAA"+Digest(e.Raw))

	_, err := hab.MakeOwnEvent(1)
	assert.Error(err)

	_, err = hby.MakeHab("nope", "EUnknown", nil)
	assert.Error(err)
}
