package delegation

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/findy-network/findy-common-go/dto"
	"github.com/findy-network/findy-keri-agent/agent/delegating"
	"github.com/findy-network/findy-keri-agent/agent/longrunning"
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// StatusCmd tells if the delegated event is approved and completed.
type StatusCmd struct {
	cmds.StoreCmd

	Pre  string
	SN   uint64
	SAID string // optional, must match the completed event
}

func (c StatusCmd) Validate() error {
	if err := c.StoreCmd.Validate(); err != nil {
		return err
	}
	if c.Pre == "" {
		return errors.New("identifier prefix cannot be empty")
	}
	return nil
}

type Result struct {
	Operation *longrunning.Op `json:"operation"`
}

func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func (c StatusCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "delegation status")

	store := try.To1(c.OpenStore())
	defer store.Close()

	s := delegating.New(delegating.Config{Store: store})
	if c.SAID != "" {
		try.To1(s.Complete(c.Pre, c.SN, &c.SAID))
	}

	m := longrunning.NewMonitor(nil, s, nil)
	name := try.To1(m.Submit(longrunning.TypeDelegation, c.Pre,
		longrunning.DelegationMetadata{Pre: c.Pre, SN: c.SN}))
	res := &Result{Operation: try.To1(m.Get(name))}

	cmds.Fprintln(w, dto.ToJSON(res.Operation))
	return res, nil
}
