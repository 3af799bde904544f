package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// plainValue renders v without quoting, for use inside the line prefix.
func plainValue(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return strings.Trim(consoleValue(v), `"`)
}

// consoleValue renders one attribute value for the console handler. Floats
// keep at most three decimals so confidences stay readable and string slices
// print as [a,b,c].
func consoleValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(math.Round(v.Float64()*1000)/1000, 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	}
	switch value := v.Any().(type) {
	case error:
		return quoteIfNeeded(value.Error())
	case []string:
		return quoteIfNeeded("[" + strings.Join(value, ",") + "]")
	case fmt.Stringer:
		return quoteIfNeeded(value.String())
	default:
		return quoteIfNeeded(fmt.Sprint(value))
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
