// Package textutil post-processes recognition engine output.
package textutil
