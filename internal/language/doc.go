// Package language normalizes language hints into the two-letter codes the
// recognition engine expects.
package language
