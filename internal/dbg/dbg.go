// Package dbg provides a trace logger for the core. Production
// builds compile it to a no-op; building with -tags debug wires it to a
// real *log.Logger writing to stderr with file/line information.
package dbg

// Logger is the interface every trace call in the core goes through. Never
// call fmt.Println or log.Printf directly for emulator trace output — route
// it through here so a release build can compile it away.
type Logger interface {
	Printf(format string, a ...interface{})
	Println(a ...interface{})
}

// log is swapped at init() time by debug.go or release.go depending on the
// debug build tag.
var log Logger

// Printf logs a formatted trace line.
func Printf(format string, a ...interface{}) {
	log.Printf(format, a...)
}

// Println logs a trace line.
func Println(a ...interface{}) {
	log.Println(a...)
}
