package robot

import (
	"sync"
)

// Guard is the scoped-acquisition handle for a running orchestrator. Every
// exit path, normal or abnormal, funnels through Release, which stops the
// orchestrator exactly once.
type Guard struct {
	o    *Orchestrator
	once sync.Once
}

// Acquire starts the orchestrator and hands back a guard for its resources.
// On a failed start nothing is running and no guard is returned.
//
//	guard, ok := o.Acquire()
//	if !ok { ... }
//	defer guard.Release()
func (o *Orchestrator) Acquire() (*Guard, bool) {
	if !o.Start() {
		return nil, false
	}
	return &Guard{o: o}, true
}

// Release stops the guarded orchestrator. Safe to call multiple times; only
// the first call stops.
func (g *Guard) Release() {
	g.once.Do(g.o.Stop)
}
