// Package notifications tells the outside world about applied metadata.
//
// Two transports live here. The ntfy Service pushes a short human summary when
// an apply finishes or fails. The webhook Invalidator posts the ids of changed
// files and series so a library server can drop stale entries. Both degrade to
// no-ops when their endpoint is not configured.
package notifications
