package logs

import (
	"fmt"
	"io"
	"os"

	"github.com/reusee/taidoc/cmds"
)

var logFileFlag = cmds.Var[string]("-log-file")

func init() {
	cmds.GlobalExecutor.Describe("-log-file", "append logs to a file instead of stderr")
}

type Writer io.Writer

func (Module) Writer() Writer {
	if *logFileFlag == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(*logFileFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file %s: %v, logging to stderr\n", *logFileFlag, err)
		return os.Stderr
	}
	return f
}
