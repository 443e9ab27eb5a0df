// Package relay implements the broadcast engine of the chat relay.
//
// The Engine owns the connect, speak and disconnect semantics: it updates the
// registry and fans every resulting event out to a snapshot of the live
// connections. Per-connection send failures are recorded in a Report and
// logged, but they never abort a broadcast and never remove a connection from
// the registry; removal only happens on OnClose.
package relay
