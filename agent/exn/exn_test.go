package exn

import (
	"errors"
	"testing"
	"time"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

func TestExchange(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	dt := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	m := try.To1(Exchange("/hmessage", map[string]any{"m": "hello"}, "ESender",
		WithDate(dt), WithRecipient("ERecipient")))
	assert.Equal(m.Ilk, Ilk)
	assert.Equal(m.Date, "2024-01-02T03:04:05.000006+00:00")
	assert.Equal(len(m.SAID), kel.DigestLen)
	assert.That(m.Verify())

	msg := append(append([]byte(nil), m.Raw...), []byte("-FAB")...)
	got := try.To1(Parse(msg))
	assert.Equal(got.SAID, m.SAID)
	assert.Equal(got.Attrs["m"], any("hello"))
	assert.Equal(got.Recipient, "ERecipient")

	got.Attrs["m"] = "tampered"
	assert.That(!got.Verify())

	icp := try.To1(kel.Incept())
	_, err := Parse(icp.Raw)
	assert.That(errors.Is(err, ErrIlk))
}

type testHandler struct {
	route   string
	valid   bool
	handled []string
}

func (h *testHandler) Resource() string        { return h.route }
func (h *testHandler) Verify(m *Message) bool  { return h.valid }
func (h *testHandler) Handle(m *Message) error { h.handled = append(h.handled, m.SAID); return nil }

func TestExchanger_Process(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	x := NewExchanger(nil)
	ok := &testHandler{route: "/ok", valid: true}
	bad := &testHandler{route: "/bad"}
	assert.NoError(x.AddHandler(ok))
	assert.NoError(x.AddHandler(bad))
	err := x.AddHandler(&testHandler{route: "/ok"})
	assert.That(errors.Is(err, ErrDuplicate))
	assert.DeepEqual(x.Routes(), []string{"/bad", "/ok"})

	req := try.To1(Exchange("/ok", nil, "EA"))
	assert.NoError(x.Process(req))
	assert.Equal(len(ok.handled), 1)
	assert.That(Unanswered(x.Log(), req.SAID))

	rsp := try.To1(Exchange("/other", nil, "EB", WithPrior(req.SAID)))
	assert.NoError(x.Process(rsp))
	assert.That(!Unanswered(x.Log(), req.SAID))
	r, found := x.Log().Response(req.SAID)
	assert.That(found)
	assert.Equal(r.SAID, rsp.SAID)

	m := try.To1(Exchange("/bad", nil, "EA"))
	err = x.Process(m)
	assert.That(errors.Is(err, ErrVerify))
	_, found = x.Log().Clone(m.SAID)
	assert.That(!found)
	assert.Equal(len(bad.handled), 0)

	m.Route = "/ok"
	err = x.Process(m)
	assert.That(errors.Is(err, kel.ErrSAID))
}
