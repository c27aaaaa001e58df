package http

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/stksupply/ticket-bot/internal/config"
)

// ErrNoFreePort is returned when every port of the scan range is taken.
var ErrNoFreePort = errors.New("no free port in range")

// Listen binds the keep-alive server. A fixed APP_PORT is used as is;
// otherwise the first free port of [PortStart, PortEnd] wins.
func Listen(cfg config.AppConfig) (net.Listener, error) {
	if cfg.Port != "" {
		return net.Listen("tcp", cfg.Addr())
	}
	for port := cfg.PortStart; port <= cfg.PortEnd; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
	}
	return nil, fmt.Errorf("%w %d-%d", ErrNoFreePort, cfg.PortStart, cfg.PortEnd)
}
