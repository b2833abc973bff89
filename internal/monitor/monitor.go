// Package monitor observes a host's provisioning transition after a
// provision patch has been submitted, off the request path, until the host
// reaches a terminal state or the configured timeout expires. Every task
// reports exactly one outcome to the notifier.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"metalhook/internal/baremetal"
	"metalhook/internal/notify"
)

// HostObserver is the read side of the cluster API the monitor needs.
// *baremetal.Client implements it.
type HostObserver interface {
	ProvisioningState(ctx context.Context, hostName string) (baremetal.State, error)
	WatchHost(ctx context.Context, hostName string, timeoutSeconds int64) (watch.Interface, error)
}

// OutcomeNotifier receives the single terminal outcome of a task.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, outcome notify.Outcome)
}

// Registry tracks one in-flight monitor task per host. A duplicate
// provision for a host cancels and replaces the existing task instead of
// running two unbounded monitors against the same resource.
type Registry struct {
	observer HostObserver
	notifier OutcomeNotifier
	log      logr.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

type task struct {
	resourceName string
	correlation  notify.Correlation
	timeout      time.Duration

	cancel   context.CancelFunc
	replaced atomic.Bool
}

// NewRegistry builds an empty registry.
func NewRegistry(observer HostObserver, notifier OutcomeNotifier, log logr.Logger) *Registry {
	return &Registry{
		observer: observer,
		notifier: notifier,
		log:      log.WithName("monitor"),
		tasks:    make(map[string]*task),
	}
}

// Start launches a monitor task for the host. If a task for the same host
// is already running it is canceled and replaced; the replaced task exits
// without reporting an outcome, since the transition it was watching has
// been superseded.
func (r *Registry) Start(resourceName string, correlation notify.Correlation, timeout time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		resourceName: resourceName,
		correlation:  correlation,
		timeout:      timeout,
		cancel:       cancel,
	}

	r.mu.Lock()
	if prev, ok := r.tasks[resourceName]; ok {
		prev.replaced.Store(true)
		prev.cancel()
		r.log.Info("replacing in-flight monitor", "host", resourceName)
	}
	r.tasks[resourceName] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer r.remove(t)
		r.run(ctx, t)
	}()
}

// Active reports whether a monitor is currently running for the host.
func (r *Registry) Active(resourceName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[resourceName]
	return ok
}

// Wait blocks until all running tasks have finished. Used on shutdown and
// in tests.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) remove(t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[t.resourceName] == t {
		delete(r.tasks, t.resourceName)
	}
}

// run drives one task to its single terminal outcome: the host reaches a
// terminal state, the host is deleted mid-provisioning, the time bound is
// exhausted, or the watch faults.
func (r *Registry) run(ctx context.Context, t *task) {
	log := r.log.WithValues("host", t.resourceName)
	started := time.Now()

	outcome, reported := r.observe(ctx, t, log)
	if !reported {
		// Superseded by a newer task; that task owns the outcome now.
		log.Info("monitor replaced before conclusion")
		recordMonitorOutcome("replaced", time.Since(started))
		return
	}

	if outcome.Success {
		log.Info("host provisioning completed", "duration", time.Since(started).Round(time.Second))
		recordMonitorOutcome("success", time.Since(started))
	} else {
		log.Error(nil, "host provisioning did not complete", "reason", outcome.ErrorMessage)
		recordMonitorOutcome("failure", time.Since(started))
	}

	notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	r.notifier.NotifyOutcome(notifyCtx, outcome)
}

// notifyTimeout bounds the outcome deliveries of a finished task.
const notifyTimeout = 2 * time.Minute

func (r *Registry) observe(ctx context.Context, t *task, log logr.Logger) (notify.Outcome, bool) {
	deadline := time.Now().Add(t.timeout)

	// Read the current state first: if the host is already terminal there
	// is no reason to hold a long-lived watch connection. This also
	// tolerates the race where the host turns terminal between the patch
	// submission and this first read.
	state, err := r.observer.ProvisioningState(ctx, t.resourceName)
	if err != nil {
		if t.replaced.Load() {
			return notify.Outcome{}, false
		}
		return r.failure(t, fmt.Sprintf("monitor error: %v", err)), true
	}
	if state.Terminal() {
		log.Info("host already in terminal state", "state", state)
		return r.conclude(t, state), true
	}

	timeoutSeconds := int64(time.Until(deadline) / time.Second)
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}

	w, err := r.observer.WatchHost(ctx, t.resourceName, timeoutSeconds)
	if err != nil {
		if t.replaced.Load() {
			return notify.Outcome{}, false
		}
		return r.failure(t, fmt.Sprintf("monitor error: %v", err)), true
	}
	defer w.Stop()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if t.replaced.Load() {
				return notify.Outcome{}, false
			}
			return r.failure(t, "monitor error: canceled"), true

		case <-timer.C:
			return r.failure(t, "timeout"), true

		case ev, ok := <-w.ResultChan():
			if !ok {
				// The server closed the bounded watch without the host
				// reaching a terminal state.
				return r.failure(t, "timeout"), true
			}

			switch ev.Type {
			case watch.Added, watch.Modified:
				obj, isUnstructured := ev.Object.(*unstructured.Unstructured)
				if !isUnstructured {
					continue
				}
				state := baremetal.StateOf(obj)
				if state.Terminal() {
					return r.conclude(t, state), true
				}
				log.V(1).Info("host state changed", "state", state)

			case watch.Deleted:
				return r.failure(t, "host removed during provisioning"), true

			case watch.Error:
				return r.failure(t, "monitor error: watch fault"), true
			}
		}
	}
}

func (r *Registry) conclude(t *task, state baremetal.State) notify.Outcome {
	if state.Succeeded() {
		return notify.Outcome{
			ResourceName: t.resourceName,
			Success:      true,
			Correlation:  t.correlation,
		}
	}
	return r.failure(t, fmt.Sprintf("provisioning failed with state %q", state))
}

func (r *Registry) failure(t *task, reason string) notify.Outcome {
	return notify.Outcome{
		ResourceName: t.resourceName,
		Success:      false,
		ErrorMessage: reason,
		Correlation:  t.correlation,
	}
}
