/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// fanout delivers room events to the members registered at the moment
// of the call.
type fanout struct {
	members *sessionRegistry
}

// broadcast returns the number of sessions the message was queued for.
func (f fanout) broadcast(msg any) int {
	delivered := 0
	for _, s := range f.members.members() {
		if s.deliver(msg) {
			delivered++
		}
	}
	return delivered
}

func (f fanout) send(s *Session, msg any) bool {
	return s.deliver(msg)
}
