package fastpath

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

// This file is what gen.go's go:generate directive would otherwise produce:
// bpf2go shells out to clang to turn bpf/fastpath.c into a CollectionSpec
// and a bpfObjects struct. clang isn't available in every build environment
// this package needs to compile in (notably offline CI images that lack the
// LLVM toolchain), so the spec and bindings below are assembled directly
// against github.com/cilium/ebpf/asm instead of generated from the C file.
// bpf/fastpath.c remains the source of truth for the intended program
// logic — socket_key_from_ops's field order and the port byte-swap in
// particular — and sockMapSpec/sockopsInstructions/redirectInstructions are
// a direct, instruction-for-instruction translation of it, not an
// independent design. Anyone with clang available can still run `go
// generate` to replace this file with the bpf2go-generated equivalent; the
// loadBpfObjects signature is kept bpf2go-compatible so that regeneration
// is a drop-in.

const sockMapName = "sock_map"

// Field offsets into struct bpf_sock_ops (linux/bpf.h), part of the stable
// sock_ops UAPI: op at 0, the args/reply/replylong union at 4 (16 bytes),
// family at 20, remote_ip4 at 24, local_ip4 at 28, remote_ip6[4] at 32 (16
// bytes), local_ip6[4] at 48 (16 bytes), remote_port at 64, local_port at 68.
const (
	sockOpsOpOffset         = 0
	sockOpsRemoteIP4Offset  = 24
	sockOpsLocalIP4Offset   = 28
	sockOpsRemotePortOffset = 64
	sockOpsLocalPortOffset  = 68
)

// Field offsets into struct sk_msg_md (linux/bpf.h): two 8-byte data/
// data_end pointers, then family at 16, remote_ip4 at 20, local_ip4 at 24,
// remote_ip6[4] at 28 (16 bytes), local_ip6[4] at 44 (16 bytes), remote_port
// at 60, local_port at 64.
const (
	skMsgRemoteIP4Offset  = 20
	skMsgLocalIP4Offset   = 24
	skMsgRemotePortOffset = 60
	skMsgLocalPortOffset  = 64
)

const (
	bpfSockOpsActiveEstablishedCB  = 4
	bpfSockOpsPassiveEstablishedCB = 5
	bpfNoExist                     = 1
	bpfFIngress                    = 1
	skPass                         = 1
)

// sockopsInstructions mirrors bpf_sockmap: on either established-connection
// callback it builds a socket_key from the sock_ops context and inserts it
// into sock_map; every other op is a no-op.
func sockopsInstructions() asm.Instructions {
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1),
		asm.LoadMem(asm.R2, asm.R6, sockOpsOpOffset, asm.Word),

		asm.JEq.Imm(asm.R2, bpfSockOpsActiveEstablishedCB, "sockops_insert"),
		asm.JEq.Imm(asm.R2, bpfSockOpsPassiveEstablishedCB, "sockops_insert"),
		asm.Ja.Label("sockops_exit"),

		// struct socket_key key; built on the stack at r10-16.
		asm.LoadMem(asm.R3, asm.R6, sockOpsRemoteIP4Offset, asm.Word).WithSymbol("sockops_insert"),
		asm.StoreMem(asm.R10, -16, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, sockOpsLocalIP4Offset, asm.Word),
		asm.StoreMem(asm.R10, -12, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, sockOpsRemotePortOffset, asm.Word),
		asm.RSh.Imm(asm.R3, 16),
		asm.StoreMem(asm.R10, -8, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, sockOpsLocalPortOffset, asm.Word),
		asm.StoreMem(asm.R10, -4, asm.R3, asm.Word),

		asm.Mov.Reg(asm.R1, asm.R6),
		asm.LoadMapPtr(asm.R2, 0).WithReference(sockMapName),
		asm.Mov.Reg(asm.R3, asm.R10),
		asm.Add.Imm(asm.R3, -16),
		asm.Mov.Imm(asm.R4, bpfNoExist),
		asm.FnSockHashUpdate.Call(),

		asm.Mov.Imm(asm.R0, 0).WithSymbol("sockops_exit"),
		asm.Return(),
	}
}

// redirectInstructions mirrors bpf_redirect: it builds the peer's key by
// swapping local and remote on the sk_msg context, and asks sock_map to
// redirect into that peer's ingress queue. A miss falls through — the
// return value is SK_PASS regardless of whether the helper found a peer.
func redirectInstructions() asm.Instructions {
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1),

		// struct socket_key peer_key; built on the stack at r10-16.
		asm.LoadMem(asm.R3, asm.R6, skMsgLocalIP4Offset, asm.Word),
		asm.StoreMem(asm.R10, -16, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, skMsgRemoteIP4Offset, asm.Word),
		asm.StoreMem(asm.R10, -12, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, skMsgLocalPortOffset, asm.Word),
		asm.StoreMem(asm.R10, -8, asm.R3, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, skMsgRemotePortOffset, asm.Word),
		asm.RSh.Imm(asm.R3, 16),
		asm.StoreMem(asm.R10, -4, asm.R3, asm.Word),

		asm.Mov.Reg(asm.R1, asm.R6),
		asm.LoadMapPtr(asm.R2, 0).WithReference(sockMapName),
		asm.Mov.Reg(asm.R3, asm.R10),
		asm.Add.Imm(asm.R3, -16),
		asm.Mov.Imm(asm.R4, bpfFIngress),
		asm.FnMsgRedirectHash.Call(),

		asm.Mov.Imm(asm.R0, skPass),
		asm.Return(),
	}
}

// sockMapSpec describes sock_map: BPF_MAP_TYPE_SOCKHASH, keyed by the
// 16-byte socket_key (remote_ip, local_ip, remote_port, local_port, all
// u32), bounded at 1024 entries to match bpf/common.h's
// SOCKMAP_MAX_ENTRIES.
func sockMapSpec() *ebpf.MapSpec {
	return &ebpf.MapSpec{
		Name:       sockMapName,
		Type:       ebpf.SockHash,
		KeySize:    16,
		ValueSize:  4,
		MaxEntries: 1024,
	}
}

func collectionSpec() *ebpf.CollectionSpec {
	return &ebpf.CollectionSpec{
		Maps: map[string]*ebpf.MapSpec{
			sockMapName: sockMapSpec(),
		},
		Programs: map[string]*ebpf.ProgramSpec{
			"bpf_sockmap": {
				Name:         "bpf_sockmap",
				Type:         ebpf.SockOps,
				License:      "GPL",
				Instructions: sockopsInstructions(),
			},
			"bpf_redirect": {
				Name:         "bpf_redirect",
				Type:         ebpf.SkMsg,
				License:      "GPL",
				Instructions: redirectInstructions(),
			},
		},
	}
}

// bpfObjects is the shape a bpf2go-generated bindings file would produce
// for bpf/fastpath.c: one field per program, one field per map, tagged with
// the ELF/collection symbol name the way CollectionSpec.LoadAndAssign
// expects.
type bpfObjects struct {
	BpfSockmap  *ebpf.Program `ebpf:"bpf_sockmap"`
	BpfRedirect *ebpf.Program `ebpf:"bpf_redirect"`
	SockMap     *ebpf.Map     `ebpf:"sock_map"`
}

// Close releases every object obj holds, collecting every error rather than
// stopping at the first so a partially-loaded set is still fully released.
func (o *bpfObjects) Close() error {
	var errs []error
	if o.BpfSockmap != nil {
		if err := o.BpfSockmap.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.BpfRedirect != nil {
		if err := o.BpfRedirect.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.SockMap != nil {
		if err := o.SockMap.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("fastpath: close objects: %v", errs)
	}
	return nil
}

// loadBpfObjects builds the sock_map/bpf_sockmap/bpf_redirect collection
// and assigns it into obj via the bpfObjects struct tags. opts is forwarded
// to the loader unmodified (nil picks cilium/ebpf's defaults) —
// bpf2go-generated loaders take the same signature, so this is a drop-in
// replacement target for `go generate` once clang is available.
func loadBpfObjects(obj *bpfObjects, opts *ebpf.CollectionOptions) error {
	if err := collectionSpec().LoadAndAssign(obj, opts); err != nil {
		return fmt.Errorf("fastpath: load and assign objects: %w", err)
	}
	return nil
}
