// Package approval implements metadata approval sessions: batch enrichment of
// comic files from uncertain series matches, reviewed group by group and then
// file by file before approved values are written.
//
// A session moves through a fixed sequence of phases:
//
//	series_review -> file_review -> applying -> complete
//
// with error reachable from any non-terminal phase. Every operation is looked
// up in a transition table keyed by (status, operation); pairs absent from
// the table fail with services.ErrInvalidState before anything changes.
//
// Sessions live in a SessionStore. Mutating calls run on a private working
// copy under a per-session writer lock and are committed only when the call
// succeeds, so structural errors (not found, invalid state, out of range,
// invalid target) never leave a session partially modified. The store keeps
// sessions in memory only; an idle session expires after the configured TTL
// unless it is applying.
//
// Collaborators (catalog, filename parser, series sources, metadata writer,
// rename resolver, invalidation notifier) are injected as interfaces.
package approval
