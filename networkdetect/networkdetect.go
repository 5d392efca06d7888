package networkdetect

import (
	"net"
	"net/url"
	"time"

	"github.com/go-ping/ping"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Probe struct {
	Endpoint    string
	Host        string
	AvgRtt      time.Duration
	PacketsSent int
	PacketsRecv int
	PacketLoss  float64
}

// HostOf extracts the host of an RPC endpoint URL, without the port.
func HostOf(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.Errorf("endpoint %q has no host", endpoint)
	}
	return host, nil
}

// ProbeEndpoint pings the host of endpoint count times. ICMP may need
// privileges; the error says so rather than failing the run.
func ProbeEndpoint(endpoint string, count int, logger *logrus.Entry) (*Probe, error) {
	host, err := HostOf(endpoint)
	if err != nil {
		return nil, err
	}
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", host)
	}
	pinger.Count = count
	pinger.Timeout = time.Duration(count+1) * time.Second
	pinger.OnRecv = func(pkt *ping.Packet) {
		logger.Debugf("ping %s seq %d rtt: %s", host, pkt.Seq, pkt.Rtt)
	}
	if err := pinger.Run(); err != nil {
		return nil, errors.Wrapf(err, "ping %s", host)
	}
	stats := pinger.Statistics()
	probe := &Probe{
		Endpoint:    endpoint,
		Host:        host,
		AvgRtt:      stats.AvgRtt,
		PacketsSent: stats.PacketsSent,
		PacketsRecv: stats.PacketsRecv,
		PacketLoss:  stats.PacketLoss,
	}
	logger.Infof("probe %s: avg rtt %s, loss %.1f%%", host, probe.AvgRtt, probe.PacketLoss)
	return probe, nil
}

// IsLoopback reports whether the endpoint host is a loopback address, for
// which probing is skipped.
func IsLoopback(endpoint string) bool {
	host, err := HostOf(endpoint)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
