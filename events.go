package twitchirc

import (
	"github.com/haldoran/twitchirc/internal/dispatch"
	"github.com/haldoran/twitchirc/internal/scheduler"
)

// ChatMessage is a single received PRIVMSG, re-exported from the dispatch
// package so callers never need to import internal/dispatch directly.
type ChatMessage = dispatch.ChatMessage

// SchedulerSnapshot is a point-in-time view of the outbound scheduler's
// queue depth and sliding-window occupancy, published by Client.Snapshot
// for operator-facing tooling.
type SchedulerSnapshot = scheduler.Snapshot

// events collects the subscriber lists a Client multicasts to: each slot
// fans out to every registered subscriber, in registration order, rather
// than holding just the most recently registered callback.
type events struct {
	login              []func()
	joinChannel        []func(channel string)
	leaveChannel       []func(channel string)
	roomStateChanged   []func(channel string)
	messageReceived    []func(msg ChatMessage)
}

func (e *events) fireLogin() {
	for _, f := range e.login {
		f()
	}
}

func (e *events) fireJoinChannel(channel string) {
	for _, f := range e.joinChannel {
		f(channel)
	}
}

func (e *events) fireLeaveChannel(channel string) {
	for _, f := range e.leaveChannel {
		f(channel)
	}
}

func (e *events) fireRoomStateChanged(channel string) {
	for _, f := range e.roomStateChanged {
		f(channel)
	}
}

func (e *events) fireMessageReceived(msg ChatMessage) {
	for _, f := range e.messageReceived {
		f(msg)
	}
}
