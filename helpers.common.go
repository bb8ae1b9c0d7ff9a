package main

import (
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"strings"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrTooManyRetries = errors.New("too many transaction retries")
)

type ContextKey string

const (
	BookIDPrefix            string     = "b"
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// Plain text messages of the books endpoints.
const (
	MsgMissingTitle    = "missing required field title"
	MsgMissingComment  = "missing required field comment"
	MsgNoBook          = "no book exists"
	MsgDeleteSucceeded = "delete successful"
	MsgDeleteAll       = "complete delete successful"
	MsgServerError     = "server error"
	MsgNotFound        = "Not Found"
	MsgTooManyRequests = "too many requests"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// GetRequestField reads a single text field from a request body. Both json and
// urlencoded form bodies are supported. A field which is absent or not a string
// is returned as an empty value. Present values are returned untouched.
func GetRequestField(r *http.Request, name string) (string, error) {
	mediatype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediatype != "application/json" {
		return r.PostFormValue(name), nil
	}

	if r.Body == nil {
		return "", nil
	}
	payload := map[string]interface{}{}
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	value, _ := payload[name].(string)
	return value, nil
}

// IsBlank reports whether a text field holds only white spaces.
func IsBlank(value string) bool {
	return len(strings.TrimSpace(value)) == 0
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
