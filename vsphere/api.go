package vsphere

import (
	"context"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

// Datastore is one datastore mounted on a host, addressable by name and
// by its managed object reference.
type Datastore struct {
	Name string
	Ref  types.ManagedObjectReference
}

// MountSpec describes the NFS volume to mount as a datastore.
type MountSpec struct {
	RemoteHost string
	RemotePath string
	LocalName  string
	ReadOnly   bool
}

// API is the subset of vSphere operations the reconciler needs.
// The real implementation is Client (govmomi); tests inject a Mock.
type API interface {
	// FindHost resolves an ESXi host by its inventory name.
	FindHost(ctx context.Context, name string) (*object.HostSystem, error)
	// HostDatastores enumerates the datastores currently mounted on host.
	HostDatastores(ctx context.Context, host *object.HostSystem) ([]Datastore, error)
	// CreateNasDatastore mounts the NFS volume described by spec on host
	// and returns a short detail string identifying the new datastore.
	CreateNasDatastore(ctx context.Context, host *object.HostSystem, spec MountSpec) (string, error)
	// RemoveDatastore unmounts the datastore identified by ref from host.
	RemoveDatastore(ctx context.Context, host *object.HostSystem, ref types.ManagedObjectReference) error
}

var (
	_ API = (*Client)(nil)
	_ API = (*Mock)(nil)
)
