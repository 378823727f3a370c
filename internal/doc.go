// Package internal contains the implementation packages of docview.
//
// # Package Organization
//
//   - types: class index, class document and member records
//   - registry: the shared class list, name resolution and reload events
//   - loader: single-flight fetching and caching of class documents
//   - tree: the class tree grouped by package or inheritance
//   - members: member filtering and the per-type toolbar groups
//   - state: per-class member expansion and per-URL scroll positions
//   - navigation: the per-tab controller turning intents into view calls
//   - view: server-side page model rendered with templ
//   - settings: persisted browser preferences (memory, yaml, sqlite)
//   - websocket: the hub running one navigation session per tab
//   - server: HTTP routes, the shell page and the JSON API
//   - watcher: index reloads when the documentation output changes
//   - analytics: navigation event counters
//   - config, logging, errors, version: ambient support
//
// # Concurrency
//
// A navigation controller owns its view and state and runs on one
// goroutine; the loader and registry are shared between all sessions and
// safe for concurrent use. Loads complete asynchronously and re-enter the
// controller as completions, where stale ones are dropped by sequence
// number.
package internal
