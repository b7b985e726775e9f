package cmds

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

var ErrInvalid = errors.New("invalid command, check arguments")

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// StoreCmd is the escrow database part of the commands.
type StoreCmd struct {
	DBFile     string
	DBDriver   string
	KeysetFile string
}

func (c StoreCmd) Validate() error {
	if c.DBFile == "" {
		return errors.New("database file cannot be empty")
	}
	switch c.DBDriver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalid, c.DBDriver)
	}
	return nil
}

// OpenStore opens the escrow store. If the keyset file is given the values
// are sealed with it, and a new keyset is written if the file doesn't exist.
func (c StoreCmd) OpenStore() (s escrow.Store, err error) {
	defer err2.Handle(&err, "open store %s", c.DBFile)

	var opts []escrow.Option
	if c.KeysetFile != "" {
		ks := try.To1(c.keyset())
		opts = append(opts, escrow.WithCipher(try.To1(escrow.NewCipherFromJSON(ks))))
	}
	if c.DBDriver == DriverSQLite {
		return escrow.OpenSQL(c.DBFile, opts...)
	}
	return escrow.OpenBolt(c.DBFile, opts...)
}

func (c StoreCmd) keyset() (ks []byte, err error) {
	defer err2.Handle(&err, "keyset %s", c.KeysetFile)

	ks, err = os.ReadFile(c.KeysetFile)
	if err == nil {
		return ks, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	glog.Infoln("creating new keyset:", c.KeysetFile)
	var buf bytes.Buffer
	try.To(escrow.NewKeyset(&buf))
	try.To(os.WriteFile(c.KeysetFile, buf.Bytes(), 0600))
	return buf.Bytes(), nil
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws an
// error.
func Fprintln(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws an
// error.
func Fprintf(w io.Writer, format string, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}

// ParseLoggingArgs gives the logging arguments, e.g. "-logtostderr=true
// -v=2", to the glog's flags.
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Fields(s)...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}
