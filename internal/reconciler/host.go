// Package reconciler drives a host adapter from a declarative element tree.
//
// The engine is deliberately small: the host tree has one container and a
// flat list of leaf instances, so reconciliation is a keyed diff of one
// sibling list. It works in persistence mode only: every commit builds a
// fresh child set and hands it to the host in one call.
package reconciler

import (
	"time"
)

// HostContext is an opaque marker describing where in the tree an instance is created.
type HostContext string

// Handle is the engine's per-node information exposed to CreateInstance.
type Handle struct {
	// Index is the node's position among its flattened siblings.
	Index int
	// Key is the identity key the engine matched the node by.
	Key string
}

// EventPriority classifies the update that triggered a commit.
type EventPriority int

const (
	DiscreteEventPriority EventPriority = iota + 1
	ContinuousEventPriority
	DefaultEventPriority
	IdleEventPriority
)

// TimeoutHandle identifies a timeout scheduled through the host.
type TimeoutHandle any

// HostConfig is the contract a rendering target implements. C is the
// container, P the props, I the instance, U the update payload and S the
// container child set.
type HostConfig[C comparable, P, I, U, S any] interface {
	SupportsMutation() bool
	SupportsPersistence() bool
	SupportsHydration() bool

	CreateInstance(typ string, props P, root C, hostCtx HostContext, h Handle) (I, error)
	CreateTextInstance(text string, root C, hostCtx HostContext, h Handle) (I, error)
	FinalizeInitialChildren(inst I, typ string, props P, root C, hostCtx HostContext) bool
	ShouldSetTextContent(typ string, props P) bool

	RootHostContext(root C) HostContext
	ChildHostContext(parent HostContext, typ string, root C) HostContext

	// PrepareUpdate computes the payload for a prop change without applying
	// it. ok is false when nothing observable changed.
	PrepareUpdate(inst I, typ string, oldProps, newProps P, root C, hostCtx HostContext) (payload U, ok bool)
	CommitUpdate(inst I, payload U, typ string, oldProps, newProps P)
	CloneInstance(inst I, payload U, typ string, oldProps, newProps P, keepChildren bool) I

	PrepareForCommit(root C)
	ResetAfterCommit(root C)

	CreateContainerChildSet(root C) S
	AppendChildToContainerChildSet(set S, child I)
	FinalizeContainerChildren(root C, set S)
	ReplaceContainerChildren(root C, set S) error

	DetachDeletedInstance(inst I)

	ScheduleTimeout(fn func(), delay time.Duration) TimeoutHandle
	CancelTimeout(h TimeoutHandle)
	NoTimeout() TimeoutHandle

	CurrentEventPriority() EventPriority
	PublicInstance(inst I) any
}
