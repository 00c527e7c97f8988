// Package script runs JavaScript sources on an embedded goja runtime and
// captures console output through an injected Sink.
//
// Every run gets a fresh runtime: scripts see only the ECMAScript globals
// plus console. There is no sandboxing beyond that, no timeout and no
// memory limit; a run only stops early when the caller cancels its
// context. Only run trusted, local code.
package script
