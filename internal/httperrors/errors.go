// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns transport failures into troubleshooting guidance.
package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Cause is the detected reason a request never produced a response.
type Cause int

const (
	CauseGeneric Cause = iota
	CauseTimeout
	CauseDNS
	CauseRefused
	CauseTLS
	CauseServer
)

func (c Cause) String() string {
	switch c {
	case CauseTimeout:
		return "timeout"
	case CauseDNS:
		return "dns"
	case CauseRefused:
		return "refused"
	case CauseTLS:
		return "tls"
	case CauseServer:
		return "server"
	default:
		return "generic"
	}
}

// Classify detects the most specific Cause for err.
func Classify(err error) Cause {
	switch {
	case err == nil:
		return CauseGeneric
	case isTimeoutError(err):
		return CauseTimeout
	case isDNSError(err):
		return CauseDNS
	case isConnectionRefusedError(err):
		return CauseRefused
	case isSSLError(err):
		return CauseTLS
	case isServerError(err.Error()):
		return CauseServer
	default:
		return CauseGeneric
	}
}

// FormatNetworkError prints guidance for err to w and returns it wrapped.
// action completes the sentence "... while <action>", e.g. "loading trips".
func FormatNetworkError(w io.Writer, err error, action, host string) error {
	if err == nil {
		return nil
	}
	if host == "" {
		host = "the SmartEco API"
	}
	p := printer{w: w}

	switch Classify(err) {
	case CauseTimeout:
		p.header("⏱️  Connection timeout while %s", action)
		p.lines("The server took too long to respond. This could mean:",
			"  • Slow internet connection",
			"  • The API is under heavy load",
			"",
			"Increase request_timeout in the config or try again in a few moments.")
	case CauseDNS:
		p.header("🌐 Cannot resolve server address while %s", action)
		p.lines(fmt.Sprintf("Unable to look up %s. Please check:", host),
			"  • Your internet connection is working",
			"  • The --api-url flag or SMARTECO_API_URL points to the right host")
	case CauseRefused:
		p.header("🚫 Connection refused while %s", action)
		p.lines(fmt.Sprintf("Nothing is accepting connections at %s. This could mean:", host),
			"  • The SmartEco server is not running",
			"  • Wrong server address or port")
	case CauseTLS:
		p.header("🔒 Secure connection failed while %s", action)
		p.lines("Cannot establish a secure HTTPS connection. Try:",
			"  • Check your system date and time",
			"  • Verify network proxy settings")
	case CauseServer:
		p.header("⚠️  Server error while %s", action)
		p.lines("The SmartEco server encountered an internal error.",
			"This is not a problem with your setup. Please try again in a few minutes.")
	default:
		p.header("❌ Cannot reach %s while %s", host, action)
		p.lines("Please check your internet connection and the configured API URL.")
		if details := err.Error(); details != "" {
			if len(details) > 100 {
				details = details[:100] + "..."
			}
			pterm.Debug.WithWriter(w).Printfln("Technical details: %s", details)
		}
	}

	return fmt.Errorf("network error: %w", err)
}

type printer struct{ w io.Writer }

func (p printer) header(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n\n", args...)
}

func (p printer) lines(ls ...string) {
	for _, l := range ls {
		fmt.Fprintln(p.w, l)
	}
	fmt.Fprintln(p.w)
}

func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError checks for gateway-level 5xx text that arrives without a JSON body.
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, s := range []string{"internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
