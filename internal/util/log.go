package util

import (
	"fmt"
	"os"
)

var IsTraceEnabled bool

func Write(format string, msg ...interface{}) {
	fmt.Fprintf(os.Stderr, format, msg...)
}

func Writeln(format string, msg ...interface{}) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(format, msg...))
}

func Traceln(format string, msg ...interface{}) {
	if IsTraceEnabled {
		fmt.Fprintln(os.Stderr, fmt.Sprintf(format, msg...))
	}
}

// ExitWithCode writes the error and terminates with the given code so
// scripting callers can branch on the failure class.
func ExitWithCode(err error, code int) {
	if err != nil {
		Writeln(err.Error())
	}
	os.Exit(code)
}

func Exit(err error) {
	ExitWithCode(err, 1)
}
