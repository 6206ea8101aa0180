// Package mem defines the synchronous memory-bus protocol the
// processor's access units speak to an external memory collaborator,
// plus a reference DRAM implementing it. Grounded on spec.md §6 and
// the byte-addressed accessor naming of the teacher's
// emu/load_store.go.
package mem

import "fmt"

// AccessKind distinguishes a bus load from a bus store.
type AccessKind int

const (
	Load AccessKind = iota
	Store
)

// Request is a single outstanding bus transaction issued by an access
// unit. Path and Slot identify where the eventual Response must be
// routed back to: Path is the issuing unit's name, Slot its logical
// slot id (see memunit's physicalToLogical).
type Request struct {
	Path    string
	Slot    int
	Kind    AccessKind
	Address uint32

	// Len is the number of bytes to read, valid for Load.
	Len int
	// Bytes is the big-endian payload to write, valid for Store.
	Bytes []byte
}

// NewLoadRequest builds a load request for len bytes starting at
// address.
func NewLoadRequest(path string, slot int, address uint32, length int) Request {
	return Request{Path: path, Slot: slot, Kind: Load, Address: address, Len: length}
}

// NewStoreRequest builds a store request writing bytes at address.
func NewStoreRequest(path string, slot int, address uint32, bytes []byte) Request {
	return Request{Path: path, Slot: slot, Kind: Store, Address: address, Bytes: bytes}
}

// Response is the result of servicing a Request. Exactly one of
// LoadBytes (for a Load) or nothing (for a successful Store) is set;
// Err carries a bus-level failure message instead.
type Response struct {
	Kind      AccessKind
	LoadBytes []byte
	Err       string
}

func LoadResponse(bytes []byte) Response  { return Response{Kind: Load, LoadBytes: bytes} }
func StoreResponse() Response             { return Response{Kind: Store} }
func ErrResponse(msg string) Response     { return Response{Err: msg} }
func (r Response) Failed() bool           { return r.Err != "" }
func (r Response) String() string {
	if r.Failed() {
		return fmt.Sprintf("error(%s)", r.Err)
	}
	if r.Kind == Load {
		return fmt.Sprintf("load(%x)", r.LoadBytes)
	}
	return "store(ok)"
}

// BusMemory is the protocol any memory collaborator (DRAM, a cache
// decorator, a test double) must implement. Addresses and lengths are
// unchecked by the caller; the collaborator bounds-checks per spec.md
// §6.
type BusMemory interface {
	Service(req Request) Response
}
