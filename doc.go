// Package sandwich is a Discord gateway client library: it maintains
// sharded websocket connections to Discord's gateway, decodes dispatch
// frames into typed events, keeps an in-memory cache of guilds,
// channels, members, roles, and users, and exposes a rate-limited REST
// dispatcher for calling back into the HTTP API.
//
// A Manager owns the sharding bootstrap (GET /gateway/bot) and one
// Session per shard; each Session pairs a gateway.Engine (the
// websocket protocol state machine) with a state.Store (the session's
// guild/channel/member cache) and a dispatch.Dispatcher (built-in
// state-sync handlers plus caller-registered handlers). Domain types
// (Guild, Channel, Event, ...) are defined in the models subpackage and
// re-exported here as aliases so callers can write sandwich.Guild
// without importing models directly.
package sandwich
