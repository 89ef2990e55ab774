//go:build topkdebug

package topk

// Built with -tags topkdebug every Add re-checks the heap invariants.
const debugInvariants = true
