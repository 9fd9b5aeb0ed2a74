package vsphere

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// Endpoint identifies a vCenter or standalone ESXi management endpoint.
type Endpoint struct {
	Hostname   string
	Username   string
	Password   string
	Insecure   bool
	Datacenter string // empty means the default datacenter
}

// Client wraps a govmomi session. Sessions are scoped to a single
// invocation: Dial at the start, Close when done.
type Client struct {
	client     *govmomi.Client
	datacenter string
}

// Dial opens a new authenticated session against ep. The returned
// Client's Close method must be called to log the session out.
func Dial(ctx context.Context, ep Endpoint) (*Client, error) {
	u, err := soap.ParseURL(ep.Hostname)
	if err != nil {
		return nil, &Fault{Kind: KindGeneric, Err: fmt.Errorf("parsing endpoint %q: %w", ep.Hostname, err)}
	}
	u.User = url.UserPassword(ep.Username, ep.Password)

	c, err := govmomi.NewClient(ctx, u, ep.Insecure)
	if err != nil {
		return nil, wrap(fmt.Sprintf("connecting to %s", u.Host), err)
	}
	log.Debug().Str("endpoint", u.Host).Str("user", ep.Username).Msg("session established")
	return &Client{client: c, datacenter: ep.Datacenter}, nil
}

// Close logs out and releases the session.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Logout(ctx)
}

func (c *Client) finder(ctx context.Context) (*find.Finder, error) {
	finder := find.NewFinder(c.client.Client, true)
	dc, err := finder.DatacenterOrDefault(ctx, c.datacenter)
	if err != nil {
		return nil, wrap("resolving datacenter", err)
	}
	finder.SetDatacenter(dc)
	return finder, nil
}

// FindHost resolves an ESXi host by its inventory name. A host that does
// not exist yields a NOT_FOUND fault.
func (c *Client) FindHost(ctx context.Context, name string) (*object.HostSystem, error) {
	finder, err := c.finder(ctx)
	if err != nil {
		return nil, err
	}
	host, err := finder.HostSystem(ctx, name)
	if err != nil {
		return nil, wrap(fmt.Sprintf("resolving host %q", name), err)
	}
	return host, nil
}

// HostDatastores returns the name and reference of every datastore
// currently mounted on host.
func (c *Client) HostDatastores(ctx context.Context, host *object.HostSystem) ([]Datastore, error) {
	var hs mo.HostSystem
	if err := host.Properties(ctx, host.Reference(), []string{"datastore"}, &hs); err != nil {
		return nil, wrap("listing host datastores", err)
	}
	if len(hs.Datastore) == 0 {
		return nil, nil
	}

	var items []mo.Datastore
	pc := property.DefaultCollector(c.client.Client)
	if err := pc.Retrieve(ctx, hs.Datastore, []string{"name"}, &items); err != nil {
		return nil, wrap("retrieving datastore names", err)
	}

	dss := make([]Datastore, len(items))
	for i, item := range items {
		dss[i] = Datastore{Name: item.Name, Ref: item.Self}
	}
	return dss, nil
}

// nasVolumeSpec maps a MountSpec onto the wire-level NAS volume spec.
// ReadOnly selects the readOnly access mode, otherwise readWrite.
func nasVolumeSpec(spec MountSpec) types.HostNasVolumeSpec {
	mode := types.HostMountModeReadWrite
	if spec.ReadOnly {
		mode = types.HostMountModeReadOnly
	}
	return types.HostNasVolumeSpec{
		RemoteHost: spec.RemoteHost,
		RemotePath: spec.RemotePath,
		LocalPath:  spec.LocalName,
		AccessMode: string(mode),
		Type:       string(types.HostFileSystemVolumeFileSystemTypeNFS),
	}
}

func (c *Client) CreateNasDatastore(ctx context.Context, host *object.HostSystem, spec MountSpec) (string, error) {
	hds, err := host.ConfigManager().DatastoreSystem(ctx)
	if err != nil {
		return "", wrap("getting host datastore system", err)
	}
	ds, err := hds.CreateNasDatastore(ctx, nasVolumeSpec(spec))
	if err != nil {
		return "", wrap(fmt.Sprintf("mounting %s:%s as %q", spec.RemoteHost, spec.RemotePath, spec.LocalName), err)
	}
	log.Info().Str("datastore", spec.LocalName).Str("ref", ds.Reference().Value).Msg("NAS datastore created")
	return ds.Reference().String(), nil
}

func (c *Client) RemoveDatastore(ctx context.Context, host *object.HostSystem, ref types.ManagedObjectReference) error {
	hds, err := host.ConfigManager().DatastoreSystem(ctx)
	if err != nil {
		return wrap("getting host datastore system", err)
	}
	if err := hds.Remove(ctx, object.NewDatastore(c.client.Client, ref)); err != nil {
		return wrap(fmt.Sprintf("removing datastore %s", ref.Value), err)
	}
	log.Info().Str("ref", ref.Value).Msg("datastore removed")
	return nil
}
