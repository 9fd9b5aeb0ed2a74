package vsphere

import (
	"context"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

// Mock records calls and returns preconfigured responses.
// Use this in tests to avoid a real vSphere session.
type Mock struct {
	Host        *object.HostSystem
	FindHostErr error

	Datastores []Datastore
	ListErr    error

	CreateDetail string
	CreateErr    error
	RemoveErr    error

	Calls   []string
	Created []MountSpec
	Removed []types.ManagedObjectReference
}

// NewMockHost builds a detached host handle for tests.
func NewMockHost() *object.HostSystem {
	return object.NewHostSystem(nil, types.ManagedObjectReference{Type: "HostSystem", Value: "host-1"})
}

func (m *Mock) FindHost(_ context.Context, name string) (*object.HostSystem, error) {
	m.Calls = append(m.Calls, "FindHost:"+name)
	if m.FindHostErr != nil {
		return nil, m.FindHostErr
	}
	if m.Host == nil {
		m.Host = NewMockHost()
	}
	return m.Host, nil
}

func (m *Mock) HostDatastores(_ context.Context, _ *object.HostSystem) ([]Datastore, error) {
	m.Calls = append(m.Calls, "HostDatastores")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Datastores, nil
}

func (m *Mock) CreateNasDatastore(_ context.Context, _ *object.HostSystem, spec MountSpec) (string, error) {
	m.Calls = append(m.Calls, "CreateNasDatastore:"+spec.LocalName)
	m.Created = append(m.Created, spec)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return m.CreateDetail, nil
}

func (m *Mock) RemoveDatastore(_ context.Context, _ *object.HostSystem, ref types.ManagedObjectReference) error {
	m.Calls = append(m.Calls, "RemoveDatastore:"+ref.Value)
	m.Removed = append(m.Removed, ref)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	return nil
}

// MutatingCalls counts the mount/unmount calls that were issued.
func (m *Mock) MutatingCalls() int {
	return len(m.Created) + len(m.Removed)
}
