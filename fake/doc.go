// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, scripted behavior for the reactor, the raw socket
// calls and the secure transport, so the connection manager and the
// websocket session can be exercised without real descriptors.
package fake
