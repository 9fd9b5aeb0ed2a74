package reconcile

import (
	"context"
	"fmt"

	"github.com/erikmagkekse/vsphere-nfs-ds/model"
	"github.com/erikmagkekse/vsphere-nfs-ds/vsphere"

	"github.com/rs/zerolog/log"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

// Request describes one desired NFS datastore mount on one ESXi host.
type Request struct {
	ESXiHostname  string `json:"esxi_hostname"`
	DatastoreName string `json:"datastore_name"`
	NFSServer     string `json:"nfs_server"`
	NFSPath       string `json:"nfs_path"`
	ReadOnly      bool   `json:"nfs_readonly"`
	DryRun        bool   `json:"dry_run"`
}

// Result reports whether the invocation changed anything, plus an opaque
// detail string for the mutating cases.
type Result struct {
	Changed bool   `json:"changed"`
	Detail  string `json:"result,omitempty"`
}

// InvalidRequestError reports a request rejected by validation before
// any remote call was made.
type InvalidRequestError struct {
	Field string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (r Request) validate() error {
	for field, v := range map[string]string{
		"esxi_hostname":  r.ESXiHostname,
		"datastore_name": r.DatastoreName,
		"nfs_server":     r.NFSServer,
		"nfs_path":       r.NFSPath,
	} {
		if v == "" {
			return &InvalidRequestError{Field: field}
		}
	}
	return nil
}

// transition pairs desired and actual state. Dispatch is a direct match
// over the four possible combinations.
type transition struct {
	desired model.State
	actual  model.State
}

// Reconcile converges the mount state of req's datastore on req's host
// to desired. At most one mutating call is issued per invocation; the
// first error aborts with no retry.
func Reconcile(ctx context.Context, api vsphere.API, desired model.State, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	host, err := api.FindHost(ctx, req.ESXiHostname)
	if err != nil {
		observe(actionNone, outcomeError)
		return Result{}, err
	}

	dss, err := api.HostDatastores(ctx, host)
	if err != nil {
		observe(actionNone, outcomeError)
		return Result{}, err
	}

	// A host usually carries more than one datastore; scan all of them
	// for a name match before concluding absence.
	actual := model.StateAbsent
	var ref types.ManagedObjectReference
	for _, ds := range dss {
		if ds.Name == req.DatastoreName {
			actual = model.StatePresent
			ref = ds.Ref
			break
		}
	}

	tr := transition{desired: desired, actual: actual}
	switch tr {
	case transition{model.StatePresent, model.StateAbsent}:
		return mount(ctx, api, host, req)
	case transition{model.StateAbsent, model.StatePresent}:
		return unmount(ctx, api, host, ref, req)
	case transition{model.StatePresent, model.StatePresent},
		transition{model.StateAbsent, model.StateAbsent}:
		log.Debug().
			Str("host", req.ESXiHostname).
			Str("datastore", req.DatastoreName).
			Str("state", string(actual)).
			Msg("already converged")
		observe(actionNone, outcomeUnchanged)
		return Result{Changed: false}, nil
	}
	return Result{}, fmt.Errorf("unhandled state pair %s/%s", tr.desired, tr.actual)
}

func mount(ctx context.Context, api vsphere.API, host *object.HostSystem, req Request) (Result, error) {
	spec := vsphere.MountSpec{
		RemoteHost: req.NFSServer,
		RemotePath: req.NFSPath,
		LocalName:  req.DatastoreName,
		ReadOnly:   req.ReadOnly,
	}
	if req.DryRun {
		observe(actionMount, outcomeDryRun)
		return Result{
			Changed: true,
			Detail:  fmt.Sprintf("would mount %s:%s as %q", spec.RemoteHost, spec.RemotePath, spec.LocalName),
		}, nil
	}

	detail, err := api.CreateNasDatastore(ctx, host, spec)
	if err != nil {
		observe(actionMount, outcomeError)
		return Result{}, err
	}
	log.Info().
		Str("host", req.ESXiHostname).
		Str("datastore", req.DatastoreName).
		Bool("readonly", req.ReadOnly).
		Msg("datastore mounted")
	observe(actionMount, outcomeChanged)
	return Result{Changed: true, Detail: detail}, nil
}

func unmount(ctx context.Context, api vsphere.API, host *object.HostSystem, ref types.ManagedObjectReference, req Request) (Result, error) {
	if req.DryRun {
		observe(actionUnmount, outcomeDryRun)
		return Result{
			Changed: true,
			Detail:  fmt.Sprintf("would unmount %q", req.DatastoreName),
		}, nil
	}

	if err := api.RemoveDatastore(ctx, host, ref); err != nil {
		observe(actionUnmount, outcomeError)
		return Result{}, err
	}
	log.Info().
		Str("host", req.ESXiHostname).
		Str("datastore", req.DatastoreName).
		Msg("datastore unmounted")
	observe(actionUnmount, outcomeChanged)
	return Result{Changed: true, Detail: fmt.Sprintf("unmounted %q", req.DatastoreName)}, nil
}
