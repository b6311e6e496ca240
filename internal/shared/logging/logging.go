// Package logging holds the process-wide Debug sink every layer
// writes verbose diagnostics to, following go-kgp's
// `Debug = log.New(io.Discard, ...)` idiom: silent by default,
// switched on by --verbose. The always-on operational log stays a
// plain *log.Logger passed down explicitly (Registry -> Actor,
// Transport -> Session); Debug is only for chatter nobody wants
// unless they asked for it.
package logging

import (
	"io"
	"log"
)

// Debug discards everything until EnableDebug redirects it.
var Debug = log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds)

// EnableDebug redirects Debug output to w; called once at startup
// when --verbose is set.
func EnableDebug(w io.Writer) {
	Debug.SetOutput(w)
}
