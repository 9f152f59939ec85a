package logger

import (
	"fmt"
	"time"
)

type traceOutcome int

const (
	traceSkipped traceOutcome = iota
	traceFailed
	traceSlow
	traceDone
)

// statementTrace is what every backend reports about one executed statement
type statementTrace struct {
	outcome traceOutcome
	elapsed time.Duration
	sql     string
	rows    int64
	err     error
}

// traceStatement decides how a statement is reported at level. fc is only
// called when something will be logged.
func traceStatement(level LogLevel, slowThreshold time.Duration, begin time.Time, fc func() (string, int64), err error) statementTrace {
	t := statementTrace{elapsed: time.Since(begin), err: err}
	switch {
	case level <= Silent:
		return t
	case err != nil && level >= Error:
		t.outcome = traceFailed
	case slowThreshold != 0 && t.elapsed > slowThreshold && level >= Warn:
		t.outcome = traceSlow
	case level >= Info:
		t.outcome = traceDone
	default:
		return t
	}
	t.sql, t.rows = fc()
	return t
}

func (t statementTrace) message() string {
	if t.outcome == traceSlow {
		return "SLOW statement executed"
	}
	return "statement executed"
}

// millis renders the elapsed time as fractional milliseconds
func (t statementTrace) millis() float64 {
	return float64(t.elapsed.Nanoseconds()) / 1e6
}

func (t statementTrace) duration() string {
	return fmt.Sprintf("%.3fms", t.millis())
}

// rowsKnown is false when the store did not report affected rows
func (t statementTrace) rowsKnown() bool {
	return t.rows != -1
}

func filterParams(parameterized bool, sql string, params []interface{}) (string, []interface{}) {
	if parameterized {
		return sql, nil
	}
	return sql, params
}
