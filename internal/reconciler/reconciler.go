package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// Reconciler creates containers bound to one host adapter.
type Reconciler[C comparable, P, I, U, S any] struct {
	host HostConfig[C, P, I, U, S]
}

// New returns a reconciler for host. The host must support persistence.
func New[C comparable, P, I, U, S any](host HostConfig[C, P, I, U, S]) (*Reconciler[C, P, I, U, S], error) {
	if host == nil {
		return nil, errors.New("host config is nil")
	}
	if !host.SupportsPersistence() {
		return nil, errors.New("host config must support persistence")
	}
	return &Reconciler[C, P, I, U, S]{host: host}, nil
}

// Commit summarises one update pass.
type Commit struct {
	Created  int
	Updated  int
	Kept     int
	Deleted  int
	Priority EventPriority
}

// Container is the persistent association between a root and its committed children.
type Container[C comparable, P, I, U, S any] struct {
	host    HostConfig[C, P, I, U, S]
	root    C
	onError func(error)

	mu     sync.Mutex
	fibers []fiber[P, I]

	timerMu sync.Mutex
	pending TimeoutHandle
}

type fiber[P, I any] struct {
	typ      string
	key      string
	implicit bool
	props    P
	inst     I
}

// CreateContainer binds root to the reconciler. onError receives every error
// an update produces; it may be nil.
func (r *Reconciler[C, P, I, U, S]) CreateContainer(root C, onError func(error)) *Container[C, P, I, U, S] {
	if onError == nil {
		onError = func(error) {}
	}
	return &Container[C, P, I, U, S]{
		host:    r.host,
		root:    root,
		onError: onError,
		pending: r.host.NoTimeout(),
	}
}

// Root returns the container's root.
func (c *Container[C, P, I, U, S]) Root() C {
	return c.root
}

// Update reconciles tree against the committed children and commits the
// result. Render-phase errors abort before any host mutation. Every error is
// also passed to the container's error callback.
func (c *Container[C, P, I, U, S]) Update(ctx context.Context, tree Element[P]) (Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	commit, err := c.update(ctx, tree)
	if err != nil {
		c.onError(err)
	}
	return commit, err
}

// ScheduleUpdate submits tree after delay. A pending scheduled update is
// cancelled and replaced.
func (c *Container[C, P, I, U, S]) ScheduleUpdate(ctx context.Context, tree Element[P], delay time.Duration) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	c.cancelPendingLocked()

	var handle TimeoutHandle
	handle = c.host.ScheduleTimeout(func() {
		c.timerMu.Lock()
		if c.pending == handle {
			c.pending = c.host.NoTimeout()
		}
		c.timerMu.Unlock()
		_, _ = c.Update(ctx, tree)
	}, delay)
	c.pending = handle
}

// CancelScheduled drops a pending scheduled update, if any.
func (c *Container[C, P, I, U, S]) CancelScheduled() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.cancelPendingLocked()
}

// Unmount commits an empty tree, detaching every instance.
func (c *Container[C, P, I, U, S]) Unmount(ctx context.Context) error {
	c.CancelScheduled()
	_, err := c.Update(ctx, Fragment[P]())
	return err
}

// Instances returns the committed instances in sibling order.
func (c *Container[C, P, I, U, S]) Instances() []I {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]I, len(c.fibers))
	for i, f := range c.fibers {
		out[i] = f.inst
	}
	return out
}

func (c *Container[C, P, I, U, S]) cancelPendingLocked() {
	if c.pending != c.host.NoTimeout() {
		c.host.CancelTimeout(c.pending)
		c.pending = c.host.NoTimeout()
	}
}

type pendingClone[P, U any] struct {
	pos      int
	payload  U
	oldProps P
}

func (c *Container[C, P, I, U, S]) update(ctx context.Context, tree Element[P]) (Commit, error) {
	commit := Commit{Priority: c.host.CurrentEventPriority()}
	if err := ctx.Err(); err != nil {
		return commit, err
	}

	rootCtx := c.host.RootHostContext(c.root)
	nodes, err := c.flatten(tree, rootCtx)
	if err != nil {
		return commit, err
	}

	prior := make(map[string]int, len(c.fibers))
	for i, f := range c.fibers {
		prior[identity(f.typ, f.key, f.implicit)] = i
	}

	next := make([]fiber[P, I], 0, len(nodes))
	matched := make(map[int]bool, len(c.fibers))
	seen := make(map[string]bool, len(nodes))
	var clones []pendingClone[P, U]

	for i, n := range nodes {
		key, implicit := n.el.Key, n.el.Key == ""
		if implicit {
			key = "#" + strconv.Itoa(i)
		}
		id := identity(n.el.Type, key, implicit)
		if seen[id] {
			return commit, deckerrors.NewConfigurationError(n.el.Type, fmt.Sprintf("duplicate key %q", key))
		}
		seen[id] = true

		if idx, ok := prior[id]; ok {
			old := c.fibers[idx]
			matched[idx] = true
			if payload, changed := c.host.PrepareUpdate(old.inst, n.el.Type, old.props, n.el.Props, c.root, n.ctx); changed {
				clones = append(clones, pendingClone[P, U]{pos: len(next), payload: payload, oldProps: old.props})
				commit.Updated++
			} else {
				commit.Kept++
			}
			next = append(next, fiber[P, I]{typ: n.el.Type, key: key, implicit: implicit, props: n.el.Props, inst: old.inst})
			continue
		}

		inst, err := c.create(n, key, i)
		if err != nil {
			return commit, err
		}
		commit.Created++
		next = append(next, fiber[P, I]{typ: n.el.Type, key: key, implicit: implicit, props: n.el.Props, inst: inst})
	}

	var deleted []I
	for i, f := range c.fibers {
		if !matched[i] {
			deleted = append(deleted, f.inst)
		}
	}
	commit.Deleted = len(deleted)

	c.host.PrepareForCommit(c.root)

	for _, cl := range clones {
		f := &next[cl.pos]
		if c.host.SupportsMutation() {
			c.host.CommitUpdate(f.inst, cl.payload, f.typ, cl.oldProps, f.props)
			continue
		}
		f.inst = c.host.CloneInstance(f.inst, cl.payload, f.typ, cl.oldProps, f.props, true)
	}

	set := c.host.CreateContainerChildSet(c.root)
	for _, f := range next {
		c.host.AppendChildToContainerChildSet(set, f.inst)
	}
	c.host.FinalizeContainerChildren(c.root, set)
	replaceErr := c.host.ReplaceContainerChildren(c.root, set)

	for _, inst := range deleted {
		c.host.DetachDeletedInstance(inst)
	}
	c.host.ResetAfterCommit(c.root)

	c.fibers = next
	return commit, replaceErr
}

type node[P any] struct {
	el  Element[P]
	ctx HostContext
}

func (c *Container[C, P, I, U, S]) flatten(el Element[P], hostCtx HostContext) ([]node[P], error) {
	switch el.Type {
	case TypeFragment:
		childCtx := c.host.ChildHostContext(hostCtx, el.Type, c.root)
		var out []node[P]
		for _, child := range el.Children {
			nodes, err := c.flatten(child, childCtx)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case "":
		return nil, deckerrors.NewConfigurationError("", "element type is empty")
	default:
		if len(el.Children) > 0 && !c.host.ShouldSetTextContent(el.Type, el.Props) {
			return nil, deckerrors.NewConfigurationError(el.Type, "host elements cannot have children")
		}
		return []node[P]{{el: el, ctx: hostCtx}}, nil
	}
}

func (c *Container[C, P, I, U, S]) create(n node[P], key string, index int) (I, error) {
	h := Handle{Index: index, Key: key}
	if n.el.Type == TypeText {
		return c.host.CreateTextInstance(n.el.Text, c.root, n.ctx, h)
	}

	inst, err := c.host.CreateInstance(n.el.Type, n.el.Props, c.root, n.ctx, h)
	if err != nil {
		return inst, err
	}
	c.host.FinalizeInitialChildren(inst, n.el.Type, n.el.Props, c.root, c.host.ChildHostContext(n.ctx, n.el.Type, c.root))
	return inst, nil
}

// identity separates sibling-index keys from user keys so "#1" given by the
// caller never matches the unkeyed node at index 1.
func identity(typ, key string, implicit bool) string {
	if implicit {
		return typ + "\x00i" + key
	}
	return typ + "\x00k" + key
}
