// Package state tracks per-user conversation state for Telegram bots.
//
// Each user holds at most one Session: a single tagged State naming the
// input expected next, plus a draft payload for the entity being
// assembled. Sessions expire after a sliding TTL; an expired session is
// evicted on access, which is how abandoned flows are cleaned up.
//
// State lives in process memory only. A restart drops all in-flight
// conversations, which is acceptable at single-clan scale.
package state
