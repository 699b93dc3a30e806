package failover

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
)

// ErrorKind is the coarse category of a reported error.
type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindProtocol  ErrorKind = "protocol"
	KindThrottle  ErrorKind = "throttle"
	KindUnknown   ErrorKind = "unknown"
)

var throttleHints = []string{"rate limit", "too many requests", "quota exceeded", "capacity exceeded"}

// Classify categorizes err. A nil error is unknown.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, provider.ErrThrottled) {
		return KindThrottle
	}

	var statusErr *provider.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Throttled():
			return KindThrottle
		case statusErr.StatusCode >= 500:
			return KindTransient
		default:
			return KindProtocol
		}
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		if hasThrottleHint(rpcErr.Message) {
			return KindThrottle
		}
		return KindProtocol
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindProtocol
	}

	if hasThrottleHint(err.Error()) {
		return KindThrottle
	}
	return KindUnknown
}

func hasThrottleHint(msg string) bool {
	lower := strings.ToLower(msg)
	for _, hint := range throttleHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
