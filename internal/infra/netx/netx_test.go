package netx

import (
	"net"
	"testing"
)

func TestOutboundIP_ReturnsParsableIP(t *testing.T) {
	ip := OutboundIP()
	if net.ParseIP(ip) == nil {
		t.Fatalf("不是合法 IP：%q", ip)
	}
}

func TestOutboundIP_FallbackOnDialError(t *testing.T) {
	old := probeAddr
	probeAddr = "not-a-host-port"
	defer func() { probeAddr = old }()

	if ip := OutboundIP(); ip != FallbackIP {
		t.Fatalf("期望回退 %q，实际 %q", FallbackIP, ip)
	}
}
