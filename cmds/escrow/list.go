package escrow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ListCmd lists the entries of the delegation escrows.
type ListCmd struct {
	cmds.StoreCmd

	Queue string // optional, both of the queues if empty
}

func (c ListCmd) Validate() error {
	if err := c.StoreCmd.Validate(); err != nil {
		return err
	}
	if _, err := c.queues(); err != nil {
		return err
	}
	return nil
}

func (c ListCmd) queues() ([]escrow.Queue, error) {
	if c.Queue == "" {
		return escrow.Queues, nil
	}
	for _, q := range escrow.Queues {
		if string(q) == c.Queue {
			return []escrow.Queue{q}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown queue %q", cmds.ErrInvalid, c.Queue)
}

type Entry struct {
	Queue escrow.Queue `json:"queue"`
	Pre   string       `json:"pre"`
	SN    uint64       `json:"sn"`
	SAID  string       `json:"said"`
	AES   string       `json:"aes,omitempty"`
	Wigs  int          `json:"wigs"`
}

type Result struct {
	Entries []Entry `json:"entries"`
}

func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func (c ListCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "escrow list")

	store := try.To1(c.OpenStore())
	defer store.Close()

	res := &Result{Entries: make([]Entry, 0)}
	for _, q := range try.To1(c.queues()) {
		for _, it := range try.To1(store.Items(q)) {
			e := Entry{
				Queue: q,
				Pre:   it.Pre,
				SN:    it.Event.SN(),
				SAID:  it.SAID,
				Wigs:  len(try.To1(store.Wigs(it.Key))),
			}
			aes, err := store.GetAES(it.Key)
			switch {
			case err == nil:
				e.AES = aes.QB64()
			case !errors.Is(err, escrow.ErrNotFound):
				return nil, err
			}
			res.Entries = append(res.Entries, e)
			cmds.Fprintf(w, "%s\t%s\t%d\t%s\t%d\n", e.Queue, e.Pre, e.SN, e.SAID, e.Wigs)
		}
	}
	return res, nil
}
