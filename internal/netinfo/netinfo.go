// Package netinfo reports network state for the connectivity check and the
// status page. pi-helper writes the current state to an env file; when it is
// absent the host's interfaces are inspected instead.
package netinfo

import (
	"net"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is where pi-helper writes network state.
const DefaultEnvFile = "/run/pi-helper.env"

// pi-helper env var names.
const (
	EnvNetworkType       = "NETWORK_TYPE"
	EnvNetworkIP         = "NETWORK_IP"
	EnvNetworkStatus     = "NETWORK_STATUS"
	EnvNetworkGateway    = "NETWORK_GATEWAY"
	EnvNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	EnvNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// StatusConnected is the NETWORK_STATUS value for a usable network.
const StatusConnected = "connected"

// Info contains network state.
type Info struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Read returns network info from envFile, falling back to the process
// environment. Returns nil if NETWORK_STATUS is not set anywhere.
func Read(envFile string) *Info {
	vars, err := godotenv.Read(envFile)
	if err != nil {
		vars = map[string]string{}
	}
	get := func(k string) string {
		if v, ok := vars[k]; ok {
			return v
		}
		return os.Getenv(k)
	}

	s := get(EnvNetworkStatus)
	if s == "" {
		return nil
	}
	return &Info{
		Type:       get(EnvNetworkType),
		IP:         get(EnvNetworkIP),
		Status:     s,
		Gateway:    get(EnvNetworkGateway),
		WifiStatus: get(EnvNetworkWifiStatus),
		SSID:       get(EnvNetworkWifiSSID),
	}
}

// Checker implements the connectivity check used before each report.
type Checker struct {
	EnvFile string

	// Interfaces lists host interfaces. Defaults to net.Interfaces.
	Interfaces func() ([]net.Interface, error)
}

// Connected reports whether the network is usable. pi-helper state wins
// when present; otherwise any non-loopback interface that is up counts.
func (c *Checker) Connected() bool {
	if info := Read(c.EnvFile); info != nil {
		return info.Status == StatusConnected
	}

	list := c.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

// Info returns the latest network info, or nil.
func (c *Checker) Info() *Info {
	return Read(c.EnvFile)
}
