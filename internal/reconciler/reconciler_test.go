package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

type box struct {
	id    int
	label string
	index int
}

type recordingHost struct {
	mu         sync.Mutex
	log        []string
	nextID     int
	replaced   [][]*box
	detached   []*box
	replaceErr error
}

func (h *recordingHost) record(format string, args ...any) {
	h.mu.Lock()
	h.log = append(h.log, fmt.Sprintf(format, args...))
	h.mu.Unlock()
}

func (h *recordingHost) SupportsMutation() bool    { return false }
func (h *recordingHost) SupportsPersistence() bool { return true }
func (h *recordingHost) SupportsHydration() bool   { return false }

func (h *recordingHost) CreateInstance(typ string, props string, _ string, hostCtx HostContext, handle Handle) (*box, error) {
	if typ != "box" {
		return nil, deckerrors.NewConfigurationError(typ, "unsupported type")
	}
	h.nextID++
	h.record("create %s %s ctx=%s idx=%d", typ, props, hostCtx, handle.Index)
	return &box{id: h.nextID, label: props, index: handle.Index}, nil
}

func (h *recordingHost) CreateTextInstance(string, string, HostContext, Handle) (*box, error) {
	return nil, deckerrors.NewConfigurationError(TypeText, "text nodes are not supported")
}

func (h *recordingHost) FinalizeInitialChildren(*box, string, string, string, HostContext) bool {
	return false
}

func (h *recordingHost) ShouldSetTextContent(string, string) bool { return false }

func (h *recordingHost) RootHostContext(string) HostContext { return "root" }

func (h *recordingHost) ChildHostContext(parent HostContext, typ string, _ string) HostContext {
	if typ == "box" {
		return "box"
	}
	return parent
}

func (h *recordingHost) PrepareUpdate(_ *box, _ string, oldProps, newProps string, _ string, _ HostContext) (string, bool) {
	if oldProps == newProps {
		return "", false
	}
	return newProps, true
}

func (h *recordingHost) CommitUpdate(*box, string, string, string, string) {
	panic("mutation mode is not supported")
}

func (h *recordingHost) CloneInstance(inst *box, payload string, _ string, _, _ string, _ bool) *box {
	h.record("clone %d %s", inst.id, payload)
	inst.label = payload
	return inst
}

func (h *recordingHost) PrepareForCommit(string) { h.record("prepare") }
func (h *recordingHost) ResetAfterCommit(string) { h.record("reset") }

func (h *recordingHost) CreateContainerChildSet(string) *[]*box { return &[]*box{} }

func (h *recordingHost) AppendChildToContainerChildSet(set *[]*box, child *box) {
	*set = append(*set, child)
}

func (h *recordingHost) FinalizeContainerChildren(string, *[]*box) {}

func (h *recordingHost) ReplaceContainerChildren(_ string, set *[]*box) error {
	h.mu.Lock()
	h.replaced = append(h.replaced, append([]*box(nil), *set...))
	h.mu.Unlock()
	h.record("replace %d", len(*set))
	return h.replaceErr
}

func (h *recordingHost) DetachDeletedInstance(inst *box) {
	h.detached = append(h.detached, inst)
	h.record("detach %d", inst.id)
}

func (h *recordingHost) ScheduleTimeout(fn func(), delay time.Duration) TimeoutHandle {
	return time.AfterFunc(delay, fn)
}

func (h *recordingHost) CancelTimeout(handle TimeoutHandle) {
	if t, ok := handle.(*time.Timer); ok {
		t.Stop()
	}
}

func (h *recordingHost) NoTimeout() TimeoutHandle { return nil }

func (h *recordingHost) CurrentEventPriority() EventPriority { return DefaultEventPriority }

func (h *recordingHost) PublicInstance(inst *box) any { return inst }

func (h *recordingHost) lastReplaced() []*box {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.replaced[len(h.replaced)-1]
}

func boxEl(label string) Element[string] {
	return Element[string]{Type: "box", Props: label}
}

func keyedBox(key, label string) Element[string] {
	return Element[string]{Type: "box", Key: key, Props: label}
}

func newContainer(t *testing.T, host *recordingHost) (*Container[string, string, *box, string, *[]*box], *[]error) {
	t.Helper()
	r, err := New[string, string, *box, string, *[]*box](host)
	require.NoError(t, err)
	var errs []error
	return r.CreateContainer("deck", func(err error) { errs = append(errs, err) }), &errs
}

func TestUpdateCreatesInstancesInSiblingOrder(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	commit, err := c.Update(context.Background(), Fragment(boxEl("a"), Fragment(boxEl("b"), boxEl("c"))))
	require.NoError(t, err)
	require.Equal(t, Commit{Created: 3, Priority: DefaultEventPriority}, commit)

	got := host.lastReplaced()
	require.Len(t, got, 3)
	require.Equal(t, []int{0, 1, 2}, []int{got[0].index, got[1].index, got[2].index})
	require.Contains(t, host.log, "create box a ctx=root idx=0")
	require.Equal(t, "reset", host.log[len(host.log)-1])
}

func TestUpdateReusesInstancesAcrossCommits(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(boxEl("a"), boxEl("b")))
	require.NoError(t, err)
	first := c.Instances()

	commit, err := c.Update(context.Background(), Fragment(boxEl("a"), boxEl("B")))
	require.NoError(t, err)
	require.Equal(t, 1, commit.Kept)
	require.Equal(t, 1, commit.Updated)
	require.Zero(t, commit.Created)

	second := c.Instances()
	require.Same(t, first[0], second[0])
	require.Same(t, first[1], second[1])
	require.Equal(t, "B", second[1].label)
	require.Contains(t, host.log, fmt.Sprintf("clone %d B", first[1].id))
}

func TestUpdateDetachesRemovedInstancesAfterReplace(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(keyedBox("x", "1"), keyedBox("y", "2")))
	require.NoError(t, err)
	y := c.Instances()[1]

	host.log = nil
	commit, err := c.Update(context.Background(), Fragment(keyedBox("x", "1")))
	require.NoError(t, err)
	require.Equal(t, 1, commit.Deleted)
	require.Equal(t, []*box{y}, host.detached)
	require.Equal(t, []string{"prepare", "replace 1", fmt.Sprintf("detach %d", y.id), "reset"}, host.log)
}

func TestKeysPreserveIdentityWhenReordered(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(keyedBox("x", "1"), keyedBox("y", "2")))
	require.NoError(t, err)
	before := c.Instances()

	_, err = c.Update(context.Background(), Fragment(keyedBox("y", "2"), keyedBox("x", "1")))
	require.NoError(t, err)
	after := c.Instances()

	require.Same(t, before[0], after[1])
	require.Same(t, before[1], after[0])
	require.Empty(t, host.detached)
}

func TestFailedCreateLeavesCommittedTreeUntouched(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, errs := newContainer(t, host)

	_, err := c.Update(context.Background(), boxEl("a"))
	require.NoError(t, err)

	_, err = c.Update(context.Background(), Element[string]{Type: "dial"})
	var cfgErr *deckerrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "dial", cfgErr.Type)
	require.Len(t, *errs, 1)

	// aborted pass leaves the committed tree untouched
	require.Len(t, c.Instances(), 1)
	require.Empty(t, host.detached)
	require.Len(t, host.replaced, 1)
}

func TestTextNodesAbortUpdate(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(boxEl("a"), Text[string]("hello")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "text nodes are not supported")
	require.Empty(t, host.replaced)
}

func TestHostElementsCannotNest(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	nested := boxEl("outer")
	nested.Children = []Element[string]{boxEl("inner")}
	_, err := c.Update(context.Background(), nested)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot have children")
}

func TestDuplicateKeysAreRejected(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(keyedBox("x", "1"), keyedBox("x", "2")))
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate key "x"`)
}

func TestUserKeysDoNotCollideWithSiblingIndex(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	commit, err := c.Update(context.Background(), Fragment(keyedBox("#1", "a"), boxEl("b")))
	require.NoError(t, err)
	require.Equal(t, 2, commit.Created)
	first := c.Instances()

	// the unkeyed node moves to index 1 and must not take over the "#1" instance
	commit, err = c.Update(context.Background(), Fragment(boxEl("b"), keyedBox("#1", "a")))
	require.NoError(t, err)
	require.Equal(t, 1, commit.Created)
	require.Equal(t, 1, commit.Deleted)
	second := c.Instances()
	require.Same(t, first[0], second[1])
	require.Equal(t, "a", second[1].label)
}

func TestReplaceErrorsAreReportedButCommitted(t *testing.T) {
	t.Parallel()

	host := &recordingHost{replaceErr: errors.New("slot 3 failed")}
	c, errs := newContainer(t, host)

	_, err := c.Update(context.Background(), boxEl("a"))
	require.EqualError(t, err, "slot 3 failed")
	require.Len(t, *errs, 1)
	require.Len(t, c.Instances(), 1)
}

func TestUnmountDetachesEverything(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	_, err := c.Update(context.Background(), Fragment(boxEl("a"), boxEl("b")))
	require.NoError(t, err)

	require.NoError(t, c.Unmount(context.Background()))
	require.Len(t, host.detached, 2)
	require.Empty(t, host.lastReplaced())
	require.Empty(t, c.Instances())
}

func TestScheduleUpdateDebounces(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	c.ScheduleUpdate(context.Background(), boxEl("first"), time.Hour)
	c.ScheduleUpdate(context.Background(), boxEl("second"), time.Millisecond)

	require.Eventually(t, func() bool {
		host.mu.Lock()
		defer host.mu.Unlock()
		return len(host.replaced) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, "second", c.Instances()[0].label)

	c.ScheduleUpdate(context.Background(), boxEl("third"), time.Hour)
	c.CancelScheduled()
	require.Equal(t, "second", c.Instances()[0].label)
}

func TestUpdateHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	host := &recordingHost{}
	c, _ := newContainer(t, host)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Update(ctx, boxEl("a"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, host.replaced)
}

func TestNewRequiresPersistence(t *testing.T) {
	t.Parallel()

	_, err := New[string, string, *box, string, *[]*box](nil)
	require.Error(t, err)
}
