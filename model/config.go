package model

import "fmt"

const ToolName = "vsphere-nfs-ds"

// State is the desired or observed mount state of an NFS datastore on a
// host.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// ParseState validates a user-supplied state string.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateAbsent:
		return State(s), nil
	}
	return "", fmt.Errorf("invalid state %q (choose %q or %q)", s, StatePresent, StateAbsent)
}

type ServerConfig struct {
	ListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":8080"`
	Tokens     string `env:"SERVER_TOKENS,required"`
	TLSCert    string `env:"SERVER_TLS_CERT"`
	TLSKey     string `env:"SERVER_TLS_KEY"`

	VSphereHostname   string `env:"VSPHERE_HOSTNAME"`
	VSphereUsername   string `env:"VSPHERE_USERNAME"`
	VSpherePassword   string `env:"VSPHERE_PASSWORD"`
	VSphereInsecure   bool   `env:"VSPHERE_INSECURE"`
	VSphereDatacenter string `env:"VSPHERE_DATACENTER"`
}
