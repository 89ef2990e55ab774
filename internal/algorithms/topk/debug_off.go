//go:build !topkdebug

package topk

const debugInvariants = false
