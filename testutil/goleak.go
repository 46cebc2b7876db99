package testutil

import "go.uber.org/goleak"

// GoleakOptions ignores goroutines the standard library parks between
// tests, like idle HTTP keepalive connections.
var GoleakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
}
