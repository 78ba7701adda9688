// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection shared by the connection manager,
// the realtime client and the command-line front end.
//
// Provides concurrent-safe state handling primitives including:
//   - Counters and gauges with atomic snapshot reads
//   - Named debug probes evaluated on demand
package control
