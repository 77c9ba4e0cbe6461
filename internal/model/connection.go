package model

import (
	"strings"

	"github.com/google/uuid"
)

// HostConnection is a named mainframe connection owned by the registry.
// Immutable once created, entries are looked up by ID or by the
// (host:port, code page) pair.
type HostConnection struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Host        string `json:"host" yaml:"host"`
	Port        string `json:"port" yaml:"port"`
	Protocol    string `json:"protocol,omitempty" yaml:"protocol,omitempty"` // empty or "none" means do not pass to the CLI
	CodePage    string `json:"codePage" yaml:"codePage"`
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// NewHostConnection builds a connection with a generated identifier from a
// combined host:port string, the way pre-registry job configurations stored
// it.
func NewHostConnection(description, hostPort, codePage, protocol, timeout string) HostConnection {
	host, port := SplitHostPort(hostPort)
	return HostConnection{
		ID:          uuid.NewString(),
		Description: description,
		Host:        host,
		Port:        port,
		Protocol:    protocol,
		CodePage:    codePage,
		Timeout:     timeout,
	}
}

// HostPort renders the combined host:port form.
func (c HostConnection) HostPort() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

// SplitHostPort splits on the last colon. A string without a colon is all
// host, matching how legacy job configurations were tolerated.
func SplitHostPort(hostPort string) (host, port string) {
	i := strings.LastIndexByte(hostPort, ':')
	if i < 0 {
		return hostPort, ""
	}
	return hostPort[:i], hostPort[i+1:]
}
