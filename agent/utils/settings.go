package utils

import (
	"sync"
	"time"

	"github.com/golang/glog"
)

const DefaultSweepInterval = 500 * time.Millisecond

var Settings = &Hub{sweepInterval: DefaultSweepInterval}

// Hub holds the runtime settings of the agent. It's set once at the startup
// from the command line and environment, but the getters are safe to call
// from the workers.
type Hub struct {
	l sync.RWMutex

	dbFile        string        // escrow database file name
	dbDriver      string        // bolt or sqlite
	keysetFile    string        // tink keyset to seal escrow values, optional
	defaultProxy  string        // prefix of the default proxy hab
	sweepInterval time.Duration // time between escrow sweeps
	starveAfter   int           // sweeps before a cue-less entry is reported
	versionInfo   string        // version info in free format
	healthPort    int           // gRPC health port, 0 disables
}

func (h *Hub) DBFile() string {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.dbFile
}

func (h *Hub) SetDBFile(name string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.dbFile = name
}

func (h *Hub) DBDriver() string {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.dbDriver
}

func (h *Hub) SetDBDriver(driver string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.dbDriver = driver
}

func (h *Hub) KeysetFile() string {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.keysetFile
}

func (h *Hub) SetKeysetFile(name string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.keysetFile = name
}

// DefaultProxy returns the prefix of the hab used to send the delegation
// messages when nothing better is available.
func (h *Hub) DefaultProxy() string {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.defaultProxy
}

func (h *Hub) SetDefaultProxy(name string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.defaultProxy = name
}

func (h *Hub) SweepInterval() time.Duration {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.sweepInterval
}

// SetSweepInterval sets the time between escrow sweeps. Non positive values
// reset it to the default.
func (h *Hub) SetSweepInterval(d time.Duration) {
	h.l.Lock()
	defer h.l.Unlock()
	if d <= 0 {
		glog.Warningf("sweep interval %v, using default", d)
		d = DefaultSweepInterval
	}
	h.sweepInterval = d
}

func (h *Hub) StarveAfter() int {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.starveAfter
}

func (h *Hub) SetStarveAfter(n int) {
	h.l.Lock()
	defer h.l.Unlock()
	h.starveAfter = n
}

// SetVersionInfo sets current version info of this agent. The info is logged
// at the startup and served by the health endpoint.
func (h *Hub) SetVersionInfo(info string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.versionInfo = info
}

func (h *Hub) VersionInfo() string {
	h.l.RLock()
	defer h.l.RUnlock()
	if h.versionInfo == "" {
		return Version
	}
	return h.versionInfo
}

func (h *Hub) HealthPort() int {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.healthPort
}

func (h *Hub) SetHealthPort(port int) {
	h.l.Lock()
	defer h.l.Unlock()
	h.healthPort = port
}
