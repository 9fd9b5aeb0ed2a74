package reconcile

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/erikmagkekse/vsphere-nfs-ds/model"
	"github.com/erikmagkekse/vsphere-nfs-ds/vsphere"

	"github.com/rs/zerolog"
	"github.com/vmware/govmomi/vim25/types"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testRequest() Request {
	return Request{
		ESXiHostname:  "esx1",
		DatastoreName: "ds1",
		NFSServer:     "nfs.example.org",
		NFSPath:       "/export/ds1",
	}
}

func dsRef(v string) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: "Datastore", Value: v}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		desired     model.State
		mounted     []vsphere.Datastore
		wantChanged bool
		wantMounts  int
		wantRemoves int
	}{
		{
			name:        "present and absent mounts",
			desired:     model.StatePresent,
			mounted:     nil,
			wantChanged: true,
			wantMounts:  1,
		},
		{
			name:        "present and present is a no-op",
			desired:     model.StatePresent,
			mounted:     []vsphere.Datastore{{Name: "ds1", Ref: dsRef("datastore-1")}},
			wantChanged: false,
		},
		{
			name:        "absent and present unmounts",
			desired:     model.StateAbsent,
			mounted:     []vsphere.Datastore{{Name: "ds1", Ref: dsRef("datastore-1")}},
			wantChanged: true,
			wantRemoves: 1,
		},
		{
			name:        "absent and absent is a no-op",
			desired:     model.StateAbsent,
			mounted:     nil,
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &vsphere.Mock{Datastores: tt.mounted}

			res, err := Reconcile(context.Background(), m, tt.desired, testRequest())
			if err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
			if len(m.Created) != tt.wantMounts {
				t.Errorf("mount calls = %d, want %d", len(m.Created), tt.wantMounts)
			}
			if len(m.Removed) != tt.wantRemoves {
				t.Errorf("unmount calls = %d, want %d", len(m.Removed), tt.wantRemoves)
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	// a second apply after a successful mount must not mutate again
	m := &vsphere.Mock{CreateDetail: "Datastore:datastore-7"}

	res, err := Reconcile(context.Background(), m, model.StatePresent, testRequest())
	if err != nil {
		t.Fatalf("first Reconcile() error: %v", err)
	}
	if !res.Changed {
		t.Fatal("first Reconcile() should report changed")
	}

	m.Datastores = []vsphere.Datastore{{Name: "ds1", Ref: dsRef("datastore-7")}}
	res, err = Reconcile(context.Background(), m, model.StatePresent, testRequest())
	if err != nil {
		t.Fatalf("second Reconcile() error: %v", err)
	}
	if res.Changed {
		t.Error("second Reconcile() should be unchanged")
	}
	if m.MutatingCalls() != 1 {
		t.Errorf("mutating calls = %d, want 1", m.MutatingCalls())
	}
}

func TestPresenceScansWholeCollection(t *testing.T) {
	// the target datastore is not the first entry on the host
	m := &vsphere.Mock{Datastores: []vsphere.Datastore{
		{Name: "local-ssd", Ref: dsRef("datastore-1")},
		{Name: "iso-images", Ref: dsRef("datastore-2")},
		{Name: "ds1", Ref: dsRef("datastore-3")},
	}}

	res, err := Reconcile(context.Background(), m, model.StatePresent, testRequest())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if res.Changed {
		t.Error("datastore is already mounted, nothing should change")
	}
	if m.MutatingCalls() != 0 {
		t.Errorf("mutating calls = %d, want 0", m.MutatingCalls())
	}
}

func TestDryRun(t *testing.T) {
	t.Run("mount", func(t *testing.T) {
		m := &vsphere.Mock{}
		req := testRequest()
		req.DryRun = true

		res, err := Reconcile(context.Background(), m, model.StatePresent, req)
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if !res.Changed {
			t.Error("dry-run mount should report changed")
		}
		if !strings.Contains(res.Detail, "would mount") {
			t.Errorf("unexpected detail: %q", res.Detail)
		}
		if m.MutatingCalls() != 0 {
			t.Errorf("mutating calls = %d, want 0", m.MutatingCalls())
		}
	})

	t.Run("unmount", func(t *testing.T) {
		m := &vsphere.Mock{Datastores: []vsphere.Datastore{{Name: "ds1", Ref: dsRef("datastore-1")}}}
		req := testRequest()
		req.DryRun = true

		res, err := Reconcile(context.Background(), m, model.StateAbsent, req)
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if !res.Changed {
			t.Error("dry-run unmount should report changed")
		}
		if m.MutatingCalls() != 0 {
			t.Errorf("mutating calls = %d, want 0", m.MutatingCalls())
		}
	})

	t.Run("no-op stays unchanged", func(t *testing.T) {
		m := &vsphere.Mock{}
		req := testRequest()
		req.DryRun = true

		res, err := Reconcile(context.Background(), m, model.StateAbsent, req)
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if res.Changed {
			t.Error("dry-run no-op should not report changed")
		}
	})
}

func TestMountSpec(t *testing.T) {
	tests := []struct {
		name     string
		readonly bool
	}{
		{name: "read-write default", readonly: false},
		{name: "read-only", readonly: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &vsphere.Mock{CreateDetail: "Datastore:datastore-1"}
			req := testRequest()
			req.ReadOnly = tt.readonly

			res, err := Reconcile(context.Background(), m, model.StatePresent, req)
			if err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			if !res.Changed {
				t.Error("mount should report changed")
			}
			if res.Detail != "Datastore:datastore-1" {
				t.Errorf("Detail = %q, want create result", res.Detail)
			}

			if len(m.Created) != 1 {
				t.Fatalf("expected 1 mount call, got %d", len(m.Created))
			}
			spec := m.Created[0]
			if spec.RemoteHost != "nfs.example.org" || spec.RemotePath != "/export/ds1" || spec.LocalName != "ds1" {
				t.Errorf("unexpected spec: %+v", spec)
			}
			if spec.ReadOnly != tt.readonly {
				t.Errorf("ReadOnly = %v, want %v", spec.ReadOnly, tt.readonly)
			}
		})
	}
}

func TestUnmountUsesResolvedHandle(t *testing.T) {
	m := &vsphere.Mock{Datastores: []vsphere.Datastore{
		{Name: "other", Ref: dsRef("datastore-1")},
		{Name: "ds1", Ref: dsRef("datastore-42")},
	}}

	res, err := Reconcile(context.Background(), m, model.StateAbsent, testRequest())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if !res.Changed {
		t.Error("unmount should report changed")
	}
	if len(m.Removed) != 1 || m.Removed[0].Value != "datastore-42" {
		t.Errorf("Removed = %+v, want the resolved ds1 handle", m.Removed)
	}
}

func TestHostNotFound(t *testing.T) {
	m := &vsphere.Mock{FindHostErr: &vsphere.Fault{
		Kind: vsphere.KindNotFound,
		Err:  fmt.Errorf(`host "esx-missing" not found`),
	}}
	req := testRequest()
	req.ESXiHostname = "esx-missing"

	_, err := Reconcile(context.Background(), m, model.StatePresent, req)
	if err == nil {
		t.Fatal("Reconcile() should fail for a missing host")
	}
	if vsphere.KindOf(err) != vsphere.KindNotFound {
		t.Errorf("KindOf = %q, want %q", vsphere.KindOf(err), vsphere.KindNotFound)
	}
	if m.MutatingCalls() != 0 {
		t.Errorf("mutating calls = %d, want 0", m.MutatingCalls())
	}
}

func TestErrorPropagation(t *testing.T) {
	t.Run("mount fault", func(t *testing.T) {
		m := &vsphere.Mock{CreateErr: &vsphere.Fault{
			Kind: vsphere.KindRuntimeFault,
			Err:  fmt.Errorf("HostConfigFault: unable to reach nfs server"),
		}}

		res, err := Reconcile(context.Background(), m, model.StatePresent, testRequest())
		if err == nil {
			t.Fatal("Reconcile() should surface the mount fault")
		}
		if !strings.Contains(err.Error(), "unable to reach nfs server") {
			t.Errorf("fault message not preserved: %v", err)
		}
		if res.Changed {
			t.Error("Changed must not be reported on failure")
		}
	})

	t.Run("enumeration error", func(t *testing.T) {
		m := &vsphere.Mock{ListErr: fmt.Errorf("property collector unavailable")}

		_, err := Reconcile(context.Background(), m, model.StateAbsent, testRequest())
		if err == nil {
			t.Fatal("Reconcile() should surface the enumeration error")
		}
		if m.MutatingCalls() != 0 {
			t.Errorf("mutating calls = %d, want 0", m.MutatingCalls())
		}
	})
}

func TestValidate(t *testing.T) {
	fields := []struct {
		name  string
		blank func(*Request)
	}{
		{"esxi_hostname", func(r *Request) { r.ESXiHostname = "" }},
		{"datastore_name", func(r *Request) { r.DatastoreName = "" }},
		{"nfs_server", func(r *Request) { r.NFSServer = "" }},
		{"nfs_path", func(r *Request) { r.NFSPath = "" }},
	}

	for _, tt := range fields {
		t.Run(tt.name, func(t *testing.T) {
			m := &vsphere.Mock{}
			req := testRequest()
			tt.blank(&req)

			_, err := Reconcile(context.Background(), m, model.StatePresent, req)
			ire, ok := err.(*InvalidRequestError)
			if !ok {
				t.Fatalf("expected InvalidRequestError, got %v", err)
			}
			if ire.Field != tt.name {
				t.Errorf("Field = %q, want %q", ire.Field, tt.name)
			}
			if len(m.Calls) != 0 {
				t.Errorf("no remote call expected, got %v", m.Calls)
			}
		})
	}
}
