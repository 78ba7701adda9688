// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness-driven event reactor behind api.Reactor,
// with level-triggered epoll (Linux) and kqueue (macOS, FreeBSD) backends.
//
// Interest changes are queued and applied in one step before the reactor
// blocks, the way a kqueue change list works, so callers may register, pause
// and resume descriptors freely from inside a Poll callback.
package reactor
