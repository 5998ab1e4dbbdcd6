package main

import (
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

// extractIP returns the host part of the request's remote address
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// trimRunes cuts s to at most n runes and strips surrounding spaces
func trimRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
