package source

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/vahanboard/vahanboard/server/internal/config"
)

// Certificate states reported by CheckCert.
const (
	CertValid       = "valid"
	CertExpiring    = "expiring"
	CertExpired     = "expired"
	CertUnreachable = "unreachable"
)

// expiringDays is the remaining lifetime below which a certificate is "expiring".
const expiringDays = 30

// CertStatus describes the leaf certificate served by a source endpoint.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	AuthType string `json:"auth_type"`
	Status   string `json:"status"`
	DaysLeft int    `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"`
}

// CheckCert dials the TLS endpoint of src and reports its leaf certificate.
// It returns nil for sources without an https endpoint.
func CheckCert(ctx context.Context, src config.Source) *CertStatus {
	u, err := url.Parse(src.Endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{
		Endpoint: src.Endpoint,
		AuthType: src.Auth.Mode,
	}
	if cs.AuthType == "" {
		cs.AuthType = "none"
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec
		},
	}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = CertUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = CertUnreachable
		return cs
	}
	leaf := peerCerts[0]
	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft, cs.Status = certState(leaf.NotAfter, time.Now())
	return cs
}

// certState classifies a certificate expiring at notAfter as seen at now.
func certState(notAfter, now time.Time) (int, string) {
	daysLeft := notAfter.Sub(now).Hours() / 24
	days := int(math.Floor(daysLeft))
	switch {
	case daysLeft <= 0:
		return days, CertExpired
	case daysLeft <= expiringDays:
		return days, CertExpiring
	default:
		return days, CertValid
	}
}
