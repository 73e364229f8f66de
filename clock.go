/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "time"

// Clock lets rooms schedule vote deadlines without calling the time
// package directly, so tests can fire them on demand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call. Stop reports whether it prevented
// the call.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
