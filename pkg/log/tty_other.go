//go:build !linux && !darwin

package log

import "io"

func isTerminal(io.Writer) bool { return false }
