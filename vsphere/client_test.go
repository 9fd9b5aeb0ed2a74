package vsphere

import "testing"

func TestNasVolumeSpec(t *testing.T) {
	spec := MountSpec{
		RemoteHost: "nfs.example.org",
		RemotePath: "/export/ds1",
		LocalName:  "ds1",
	}

	t.Run("read-write default", func(t *testing.T) {
		nas := nasVolumeSpec(spec)
		if nas.AccessMode != "readWrite" {
			t.Errorf("AccessMode = %q, want readWrite", nas.AccessMode)
		}
		if nas.RemoteHost != "nfs.example.org" || nas.RemotePath != "/export/ds1" || nas.LocalPath != "ds1" {
			t.Errorf("unexpected spec: %+v", nas)
		}
		if nas.Type != "NFS" {
			t.Errorf("Type = %q, want NFS", nas.Type)
		}
	})

	t.Run("read-only", func(t *testing.T) {
		spec.ReadOnly = true
		nas := nasVolumeSpec(spec)
		if nas.AccessMode != "readOnly" {
			t.Errorf("AccessMode = %q, want readOnly", nas.AccessMode)
		}
	})
}
