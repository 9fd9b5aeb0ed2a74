package vsphere

import (
	"errors"
	"fmt"

	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// Kind is the closed set of failure classes surfaced by this package.
type Kind string

const (
	// KindNotFound means a named object (host, datacenter) could not be
	// resolved.
	KindNotFound Kind = "NOT_FOUND"
	// KindRuntimeFault is a server-side vim RuntimeFault raised during a
	// call.
	KindRuntimeFault Kind = "RUNTIME_FAULT"
	// KindMethodFault is any other vim MethodFault, i.e. a semantic
	// rejection of the requested operation.
	KindMethodFault Kind = "METHOD_FAULT"
	// KindGeneric covers everything else (network, parse, auth errors).
	KindGeneric Kind = "ERROR"
)

// Fault carries a remote API error together with its classification.
// The underlying message is preserved verbatim; there is no retry at
// this layer, callers only pick a Kind-dependent way to report it.
type Fault struct {
	Kind Kind
	Err  error
}

func (f *Fault) Error() string { return f.Err.Error() }
func (f *Fault) Unwrap() error { return f.Err }

// KindOf returns the classification of err. Errors that did not come
// out of this package are KindGeneric.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindGeneric
}

// wrap classifies a raw govmomi error and prefixes it with op context.
// Classification must happen before wrapping: the soap helpers inspect
// the error by direct type assertion.
func wrap(op string, err error) error {
	f := classify(err)
	f.Err = fmt.Errorf("%s: %w", op, f.Err)
	return f
}

func classify(err error) *Fault {
	var nf *find.NotFoundError
	if errors.As(err, &nf) {
		return &Fault{Kind: KindNotFound, Err: err}
	}
	if f := vimFault(err); f != nil {
		if _, ok := f.(types.BaseRuntimeFault); ok {
			return &Fault{Kind: KindRuntimeFault, Err: err}
		}
		return &Fault{Kind: KindMethodFault, Err: err}
	}
	return &Fault{Kind: KindGeneric, Err: err}
}

// vimFault digs the vim fault out of err, if there is one. govmomi
// surfaces faults in three shapes: task errors implementing
// types.HasFault, vim fault errors, and raw soap faults.
func vimFault(err error) types.BaseMethodFault {
	var hf types.HasFault
	if errors.As(err, &hf) {
		return hf.Fault()
	}
	if soap.IsVimFault(err) {
		return soap.ToVimFault(err)
	}
	if soap.IsSoapFault(err) {
		if f, ok := soap.ToSoapFault(err).VimFault().(types.BaseMethodFault); ok {
			return f
		}
	}
	return nil
}
