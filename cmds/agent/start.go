package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/courier"
	"github.com/findy-network/findy-keri-agent/agent/delegating"
	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/findy-network/findy-keri-agent/agent/longrunning"
	"github.com/findy-network/findy-keri-agent/agent/utils"
	"github.com/findy-network/findy-keri-agent/agent/witness"
	"github.com/findy-network/findy-keri-agent/cmds"
	delegatereq "github.com/findy-network/findy-keri-agent/protocol/delegating"
	"github.com/findy-network/findy-keri-agent/protocol/humanmessaging"
	"github.com/findy-network/findy-keri-agent/protocol/remotecoordination"
	"github.com/findy-network/findy-keri-agent/protocol/remotesigning"
	"github.com/findy-network/findy-keri-agent/protocol/tunneling"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	courierInterval  = time.Second
	receiptsInterval = time.Second
)

// StartCmd starts the agent which runs the delegation escrows of our local
// identifiers until it gets a signal.
type StartCmd struct {
	cmds.StoreCmd

	KELFile       string   // key event stream loaded at start, optional
	Locals        []string // local identifiers as name=prefix
	Proxy         string   // prefix of the default proxy
	SweepInterval time.Duration
	StarveAfter   int
	HealthPort    int
	VersionInfo   string
}

func (c *StartCmd) Validate() error {
	if err := c.StoreCmd.Validate(); err != nil {
		return err
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.HealthPort < 0 {
		return errors.New("health port cannot be negative")
	}
	for _, l := range c.Locals {
		if _, _, err := parseLocal(l); err != nil {
			return err
		}
	}
	if c.Proxy != "" && !c.isLocal(c.Proxy) {
		return fmt.Errorf("proxy %s is not a local identifier", c.Proxy)
	}
	return nil
}

func parseLocal(s string) (name, pre string, err error) {
	name, pre, found := strings.Cut(s, "=")
	if !found {
		pre, name = s, s
	}
	if name == "" || pre == "" {
		return "", "", fmt.Errorf("%w: local identifier %q", cmds.ErrInvalid, s)
	}
	return name, pre, nil
}

func (c *StartCmd) isLocal(pre string) bool {
	for _, l := range c.Locals {
		if _, p, _ := parseLocal(l); p == pre {
			return true
		}
	}
	return false
}

func (c *StartCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "agent start")

	c.setRuntimeSettings()
	a := try.To1(c.Setup())
	defer a.Close()

	try.To(a.Start())
	cmds.Fprintln(w, "agent started:", utils.Settings.VersionInfo())

	sig := waitSignal()
	glog.Infoln("stopping agent by signal:", sig)
	a.Stop()
	return nil, nil
}

func (c *StartCmd) setRuntimeSettings() {
	utils.Settings.SetDBFile(c.DBFile)
	utils.Settings.SetDBDriver(c.DBDriver)
	utils.Settings.SetKeysetFile(c.KeysetFile)
	utils.Settings.SetDefaultProxy(c.Proxy)
	utils.Settings.SetSweepInterval(c.SweepInterval)
	utils.Settings.SetStarveAfter(c.StarveAfter)
	utils.Settings.SetHealthPort(c.HealthPort)
	utils.Settings.SetVersionInfo(c.VersionInfo)
}

func waitSignal() os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	return <-sigs
}

// Agent is the running agent with all of its units.
type Agent struct {
	Store     escrow.Store
	Habery    *kel.Habery
	Notifier  *bus.Notifier
	Exchanger *exn.Exchanger
	Poster    *courier.Poster
	Receiptor *witness.Receiptor
	Sealer    *delegating.Sealer
	Monitor   *longrunning.Monitor

	healthPort int
	ops        []string // delegation operations not yet logged as done
	runner     *delegating.Runner
	health     *health.Server
	grpcS      *grpc.Server
	cancel     context.CancelFunc
}

// Setup builds the agent from the settings. The escrows are recovered and the
// pending delegations of the local identifiers are sent, but the units are
// not started yet.
func (c *StartCmd) Setup() (a *Agent, err error) {
	defer func() {
		if err != nil && a != nil && a.Store != nil {
			_ = a.Store.Close()
		}
	}()
	defer err2.Handle(&err, "setup")

	a = &Agent{
		Habery:     kel.NewHabery(nil),
		Notifier:   bus.New(),
		Exchanger:  exn.NewExchanger(exn.NewMemLog()),
		Poster:     courier.NewPoster(courier.LogTransport),
		healthPort: c.HealthPort,
	}
	if c.KELFile != "" {
		stream := try.To1(os.ReadFile(c.KELFile))
		for _, e := range try.To1(kel.ParseAll(stream)) {
			try.To(a.Habery.Kevers.Append(e))
		}
	}
	for _, l := range c.Locals {
		name, pre := try.To2(parseLocal(l))
		try.To1(a.Habery.MakeHab(name, pre, nil))
	}

	a.Store = try.To1(c.OpenStore())

	a.Receiptor = witness.NewReceiptor(a.Store, a.Habery.Kevers, witness.Stored)
	try.To(loadHandlers(a.Exchanger, a.Habery, a.Notifier))

	var proxy *kel.Hab
	if c.Proxy != "" {
		proxy, _ = a.Habery.Hab(c.Proxy)
	}
	a.Sealer = delegating.New(delegating.Config{
		Habery:      a.Habery,
		Store:       a.Store,
		Courier:     a.Poster,
		Receipts:    a.Receiptor,
		Exchanger:   a.Exchanger,
		Proxy:       proxy,
		StarveAfter: c.StarveAfter,
	})
	a.Monitor = longrunning.NewMonitor(a.Habery.Kevers, a.Sealer, a.Receiptor)
	try.To(a.Sealer.Recover())
	try.To(a.delegatePending(c.Locals))

	a.runner = try.To1(delegating.NewRunner(
		delegating.Unit{Name: "escrow", Every: c.SweepInterval, Worker: a.Sealer},
		delegating.Unit{Name: "courier", Every: courierInterval, Worker: a.Poster},
		delegating.Unit{Name: "receipts", Every: receiptsInterval, Worker: a.Receiptor},
	))
	return a, nil
}

// delegatePending sends the current establishment events of the local
// delegated identifiers which are neither completed nor escrowed yet. A
// delegation operation is submitted for every pending event.
func (a *Agent) delegatePending(locals []string) (err error) {
	defer err2.Handle(&err, "delegate pending")

	for _, l := range locals {
		_, pre := try.To2(parseLocal(l))
		hab, _ := a.Habery.Hab(pre)
		ks, ok := hab.Kever()
		if !ok || ks.Delegator == "" {
			continue
		}
		last := ks.Last()
		if last == nil || (last.Ilk != kel.Dip && last.Ilk != kel.Drt) {
			continue
		}
		sn := last.SN()
		_, err := a.Store.GetCompletion(pre, sn)
		if err == nil {
			continue
		}
		if !errors.Is(err, escrow.ErrNotFound) {
			return err
		}

		key := escrow.KeyOf(last)
		escrowed := try.To1(a.Store.Has(escrow.Unanchored, key)) ||
			try.To1(a.Store.Has(escrow.PartiallyWitnessed, key))
		if !escrowed {
			err := a.Sealer.Delegate(pre, nil, nil)
			if errors.Is(err, delegating.ErrValidation) {
				glog.Warningln("pending delegation:", err)
				continue
			}
			try.To(err)
		}
		name := try.To1(a.Monitor.Submit(longrunning.TypeDelegation, pre,
			longrunning.DelegationMetadata{Pre: pre, SN: sn}))
		a.ops = append(a.ops, name)
		glog.V(1).Infoln("waiting delegation:", name)
	}
	return nil
}

func loadHandlers(x *exn.Exchanger, hby *kel.Habery, n *bus.Notifier) (err error) {
	defer err2.Handle(&err, "load handlers")

	try.To(humanmessaging.LoadHandlers(x, n))
	try.To(remotesigning.LoadHandlers(x, n))
	try.To(remotecoordination.LoadHandlers(x, n))
	try.To(tunneling.LoadHandlers(x, n))
	try.To(delegatereq.LoadHandlers(x, hby, n))
	glog.V(1).Infoln("exn routes:", strings.Join(x.Routes(), ", "))
	return nil
}

// Start starts the units, the notification log and the health service.
func (a *Agent) Start() (err error) {
	defer err2.Handle(&err, "start")

	if port := a.healthPort; port > 0 {
		lis := try.To1(net.Listen("tcp", fmt.Sprintf(":%d", port)))
		a.grpcS = grpc.NewServer()
		a.health = health.NewServer()
		healthpb.RegisterHealthServer(a.grpcS, a.health)
		a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := a.grpcS.Serve(lis); err != nil {
				glog.Errorln("health server:", err)
			}
		}()
		glog.V(1).Infoln("health service at port", port)
	}

	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	go a.logNotes(ctx)

	a.runner.Start()
	return nil
}

func (a *Agent) logNotes(ctx context.Context) {
	key := bus.ListenKey{ClientID: "log"}
	notes := a.Notifier.AddListener(key)
	defer a.Notifier.RmListener(key)

	for {
		select {
		case note := <-notes:
			glog.Infof("notification %s: %v", note.ID, note.Attrs)
			a.logDoneOps()
		case <-ctx.Done():
			return
		}
	}
}

// logDoneOps logs the delegation operations which are done since the last
// call. Only logNotes calls it.
func (a *Agent) logDoneOps() {
	pending := a.ops[:0]
	for _, name := range a.ops {
		op, err := a.Monitor.Get(name)
		switch {
		case err != nil:
			glog.Errorln("operation:", err)
		case op.Done:
			glog.Infoln("delegation done:", name)
		default:
			pending = append(pending, name)
		}
	}
	a.ops = pending
}

// Stop stops the units and waits the running ones to finish.
func (a *Agent) Stop() {
	if a.health != nil {
		a.health.Shutdown()
		a.grpcS.GracefulStop()
	}
	a.runner.Stop()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Agent) Close() {
	if err := a.Store.Close(); err != nil {
		glog.Errorln("close store:", err)
	}
}
