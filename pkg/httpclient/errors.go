package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"os"
	"syscall"
)

// ErrProxyConfig indicates the configured proxy URL cannot be used.
var ErrProxyConfig = errors.New("httpclient: invalid proxy")

// Cause names why a request never produced a response.
type Cause string

const (
	CauseTimeout   Cause = "timeout"
	CauseDNS       Cause = "dns"
	CauseRefused   Cause = "refused"
	CauseReset     Cause = "reset"
	CauseTLS       Cause = "tls"
	CauseCanceled  Cause = "canceled"
	CauseTransport Cause = "transport"
)

// Classify maps a transport error to a Cause. It returns "" for nil.
func Classify(err error) Cause {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return CauseCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return CauseTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CauseTimeout
		}
		return CauseDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CauseRefused
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return CauseReset
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return CauseTLS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}
	return CauseTransport
}
