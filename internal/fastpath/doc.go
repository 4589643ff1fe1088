/*
Package fastpath loads and attaches the kernel socket-redirection pair:
bpf_sockmap (a sock_ops program that captures established sockets into a
bounded SockHash map) and bpf_redirect (an sk_msg program attached to that
map, which short-circuits sendmsg traffic between co-located peers).

bpf/fastpath.c holds the kernel-side C source and is the reference for the
program logic. gen.go's go:generate directive documents how to turn it into
bpf2go-generated bindings on a machine with clang available; objects.go
carries that translation by hand instead — a CollectionSpec and bpfObjects
struct assembled directly against github.com/cilium/ebpf/asm, matching
bpf2go's output shape closely enough that running `go generate` later
replaces it as a drop-in. Loader wraps those bindings with the
attach/detach lifecycle cilium/ebpf/link expects.

Attachment failure anywhere in this package is never fatal to the process:
the data plane runs correctly, just without the accelerator, on any kernel
or permission set that cannot support it.
*/
package fastpath
