package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"metalhook/internal/baremetal"
	"metalhook/internal/notify"
)

type stubObserver struct {
	mu         sync.Mutex
	state      baremetal.State
	stateErr   error
	watcher    *watch.FakeWatcher
	watchErr   error
	watchCalls int
}

func (s *stubObserver) ProvisioningState(context.Context, string) (baremetal.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.stateErr
}

func (s *stubObserver) WatchHost(context.Context, string, int64) (watch.Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCalls++
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.watcher, nil
}

func (s *stubObserver) watchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCalls
}

type stubNotifier struct {
	outcomes chan notify.Outcome
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{outcomes: make(chan notify.Outcome, 4)}
}

func (s *stubNotifier) NotifyOutcome(_ context.Context, outcome notify.Outcome) {
	s.outcomes <- outcome
}

func (s *stubNotifier) expectOutcome(t *testing.T) notify.Outcome {
	t.Helper()
	select {
	case o := <-s.outcomes:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome reported")
		return notify.Outcome{}
	}
}

func (s *stubNotifier) expectNoOutcome(t *testing.T) {
	t.Helper()
	select {
	case o := <-s.outcomes:
		t.Fatalf("unexpected outcome: %+v", o)
	case <-time.After(100 * time.Millisecond):
	}
}

func hostInState(state string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "metal3.io/v1alpha1",
			"kind":       "BareMetalHost",
			"metadata":   map[string]interface{}{"name": "server-01", "namespace": "default"},
			"status": map[string]interface{}{
				"provisioning": map[string]interface{}{"state": state},
			},
		},
	}
}

func testCorrelation() notify.Correlation {
	return notify.Correlation{WebhookID: "42", UserID: "user-1", EventID: "evt-1"}
}

func TestAlreadyTerminalConcludesWithoutWatch(t *testing.T) {
	observer := &stubObserver{state: baremetal.StateProvisioned}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	outcome := notifier.expectOutcome(t)
	assert.True(t, outcome.Success)
	assert.Equal(t, "server-01", outcome.ResourceName)
	assert.Equal(t, "42", outcome.Correlation.WebhookID)

	registry.Wait()
	assert.Equal(t, 0, observer.watchCount(), "no watch should be opened for a terminal host")
	assert.False(t, registry.Active("server-01"))
}

func TestAlreadyFailedConcludesFailure(t *testing.T) {
	observer := &stubObserver{state: baremetal.StateError}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "error")
	registry.Wait()
}

func TestConcludesOnWatchEvent(t *testing.T) {
	watcher := watch.NewFakeWithChanSize(4, false)
	observer := &stubObserver{state: baremetal.StateProvisioning, watcher: watcher}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	watcher.Modify(hostInState("provisioning"))
	watcher.Modify(hostInState("provisioned"))

	outcome := notifier.expectOutcome(t)
	assert.True(t, outcome.Success)
	registry.Wait()
}

func TestWatchDeleteIsFailure(t *testing.T) {
	watcher := watch.NewFakeWithChanSize(4, false)
	observer := &stubObserver{state: baremetal.StatePreparing, watcher: watcher}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	watcher.Delete(hostInState("preparing"))

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Equal(t, "host removed during provisioning", outcome.ErrorMessage)
	registry.Wait()
}

func TestWatchCloseIsTimeout(t *testing.T) {
	watcher := watch.NewFakeWithChanSize(4, false)
	observer := &stubObserver{state: baremetal.StateInspecting, watcher: watcher}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	watcher.Stop()

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Equal(t, "timeout", outcome.ErrorMessage)
	registry.Wait()
}

func TestTimeoutWithoutTerminalState(t *testing.T) {
	watcher := watch.NewFakeWithChanSize(4, false)
	observer := &stubObserver{state: baremetal.StateProvisioning, watcher: watcher}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), 50*time.Millisecond)

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Equal(t, "timeout", outcome.ErrorMessage)
	registry.Wait()
}

func TestInitialReadErrorIsMonitorError(t *testing.T) {
	observer := &stubObserver{stateErr: errors.New("connection refused")}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "monitor error")
	registry.Wait()
}

func TestWatchOpenErrorIsMonitorError(t *testing.T) {
	observer := &stubObserver{state: baremetal.StatePreparing, watchErr: errors.New("watch refused")}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	outcome := notifier.expectOutcome(t)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "monitor error")
	registry.Wait()
}

func TestDuplicateStartReplacesMonitor(t *testing.T) {
	firstWatcher := watch.NewFakeWithChanSize(4, false)
	observer := &stubObserver{state: baremetal.StateProvisioning, watcher: firstWatcher}
	notifier := newStubNotifier()
	registry := NewRegistry(observer, notifier, logr.Discard())

	registry.Start("server-01", testCorrelation(), time.Minute)

	// Wait for the first watch to be established, then supersede it.
	require.Eventually(t, func() bool { return observer.watchCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	secondWatcher := watch.NewFakeWithChanSize(4, false)
	observer.mu.Lock()
	observer.watcher = secondWatcher
	observer.mu.Unlock()

	registry.Start("server-01", testCorrelation(), time.Minute)

	require.Eventually(t, func() bool { return observer.watchCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	// The replaced task must not report an outcome.
	notifier.expectNoOutcome(t)

	secondWatcher.Modify(hostInState("provisioned"))
	outcome := notifier.expectOutcome(t)
	assert.True(t, outcome.Success)

	registry.Wait()
	notifier.expectNoOutcome(t)
}
