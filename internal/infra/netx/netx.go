package netx

import (
	"net"
)

// FallbackIP 在无法探测出站地址时使用。
const FallbackIP = "127.0.0.1"

// probeAddr 只用于让内核选路；UDP "连接" 不会真正发包。
var probeAddr = "8.8.8.8:80"

// OutboundIP 返回本机访问外网时会使用的本地 IP（局域网内可被手机等设备访问的地址）。
// 探测失败时返回 127.0.0.1。
func OutboundIP() string {
	conn, err := net.Dial("udp", probeAddr)
	if err != nil {
		return FallbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return FallbackIP
	}
	return addr.IP.String()
}
