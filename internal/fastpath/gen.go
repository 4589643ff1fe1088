package fastpath

//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -cc clang -target bpfel,bpfeb bpf bpf/fastpath.c -- -I./bpf
