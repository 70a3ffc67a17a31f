package probe

import (
	"context"
	"net/url"
	"time"
)

// DNSDiagnoser explains an unreachable target by classifying its host's DNS.
type DNSDiagnoser struct {
	Resolver Resolver
	Timeout  time.Duration
}

func NewDNSDiagnoser() *DNSDiagnoser {
	return &DNSDiagnoser{Timeout: defaultDNSLimit}
}

func (d *DNSDiagnoser) Diagnose(ctx context.Context, target string) DNSStatus {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDNSLimit
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return CheckDNS(ctx, d.Resolver, extractHost(target))
}

// extractHost pulls the hostname from a URL string
func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
