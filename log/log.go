// Package log implements a standard convention for structured
// logging. Log entries are formatted as K=V pairs. By default, output
// is written to stdout; this can be changed with SetOutput.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/davincci9412/Cil-core/errors"
	"github.com/davincci9412/Cil-core/internal/reqid"
)

const rfc3339NanoFixed = "2006-01-02T15:04:05.000000000Z07:00"

var (
	logWriterMu sync.Mutex
	logWriter   io.Writer = os.Stdout
	prefix      []byte

	// pairDelims follows Splunk's default K=V extraction delimiters, so
	// ad hoc log scraping (e.g. `grep reqid=`) keeps working.
	pairDelims      = " ,;|&\t\n\r"
	illegalKeyChars = pairDelims + `="`
)

// Conventional key names for log entries.
const (
	KeyCaller = "at"
	KeyTime   = "t"
	KeyReqID  = "reqid"

	KeyMessage = "message"
	KeyError   = "error"
	KeyStack   = "stack"

	keyLogError = "log-error"
)

// SetOutput sets the log output to w. Default is stdout.
func SetOutput(w io.Writer) {
	logWriterMu.Lock()
	logWriter = w
	logWriterMu.Unlock()
}

// SetPrefix sets the output prefix, formatted the same way as a log
// entry's key-value pairs.
func SetPrefix(keyval ...interface{}) {
	if len(keyval)%2 != 0 {
		panic(fmt.Sprintf("odd-length prefix args: %v", keyval))
	}
	var b []byte
	for i := 0; i < len(keyval); i += 2 {
		b = append(b, formatKey(keyval[i])...)
		b = append(b, '=')
		b = append(b, formatValue(keyval[i+1])...)
		b = append(b, ' ')
	}
	logWriterMu.Lock()
	prefix = b
	logWriterMu.Unlock()
}

// Write writes a structured log entry. Fields are a variadic sequence
// of alternating keys and values. Several fields are added
// automatically: a timestamp, the caller's file:line, and the request
// ID carried on ctx, if any.
func Write(ctx context.Context, keyvals ...interface{}) {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "", keyLogError, "odd number of log params")
	}

	var vcaller string
	if len(keyvals) >= 2 && keyvals[0] == KeyCaller {
		vcaller = formatValue(keyvals[1])
		keyvals = keyvals[2:]
	} else {
		vcaller = caller(1)
	}

	t := time.Now().UTC()

	out := fmt.Sprintf(
		"%s=%s %s=%s %s=%s",
		KeyReqID, formatValue(reqid.FromContext(ctx)),
		KeyCaller, vcaller,
		KeyTime, formatValue(t.Format(rfc3339NanoFixed)),
	)
	if sub := reqid.FromSubContext(ctx); sub != reqid.Unknown {
		out += " subreqid=" + formatValue(sub)
	}

	var stack interface{}
	for i := 0; i < len(keyvals); i += 2 {
		k, v := keyvals[i], keyvals[i+1]
		if k == KeyStack && isStackVal(v) {
			stack = v
			continue
		}
		if k == KeyError {
			if e, ok := v.(error); ok && stack == nil {
				if s := errors.Stack(e); len(s) > 0 {
					stack = s
				}
			}
		}
		out += " " + formatKey(k) + "=" + formatValue(v)
	}

	logWriterMu.Lock()
	logWriter.Write(prefix)
	logWriter.Write([]byte(out))
	logWriter.Write([]byte{'\n'})
	writeRawStack(logWriter, stack)
	logWriterMu.Unlock()
}

// Fatal is Write followed by os.Exit(1).
func Fatal(ctx context.Context, keyvals ...interface{}) {
	Write(ctx, keyvals...)
	os.Exit(1)
}

func writeRawStack(w io.Writer, v interface{}) {
	b, ok := v.([]byte)
	if !ok || len(b) == 0 {
		return
	}
	w.Write(b)
	w.Write([]byte{'\n'})
}

func isStackVal(v interface{}) bool {
	_, ok := v.([]byte)
	return ok
}

// Messagef writes a log entry containing a message assigned to the
// "message" key. Arguments are handled as in fmt.Printf.
func Messagef(ctx context.Context, format string, a ...interface{}) {
	Write(ctx, KeyCaller, caller(1), KeyMessage, fmt.Sprintf(format, a...))
}

// Error writes a log entry containing an error assigned to the
// "error" key. Optional prefix arguments are handled as in fmt.Print.
func Error(ctx context.Context, err error, a ...interface{}) {
	if len(a) > 0 {
		err = errors.Wrap(err, a...)
	}
	Write(ctx, KeyCaller, caller(1), KeyError, err)
}

func caller(skip int) string {
	_, file, nline, ok := runtime.Caller(skip + 1)
	if !ok {
		return "?:?"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(nline)
}

func formatKey(k interface{}) string {
	s := fmt.Sprint(k)
	if s == "" {
		return "?"
	}
	for _, c := range illegalKeyChars {
		s = strings.Replace(s, string(c), "-", -1)
	}
	return s
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, pairDelims) {
		return strconv.Quote(s)
	}
	return s
}

// RecoverAndLogError must be used inside a defer. It turns a panic
// into a logged error rather than letting it crash the process.
func RecoverAndLogError(ctx context.Context) {
	if err := recover(); err != nil {
		const size = 64 << 10
		buf := make([]byte, size)
		buf = buf[:runtime.Stack(buf, false)]
		Write(ctx,
			KeyMessage, "panic",
			KeyError, err,
			KeyStack, buf,
		)
	}
}
