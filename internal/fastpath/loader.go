package fastpath

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/rs/zerolog"

	"github.com/cuemby/agw/internal/metrics"
	"github.com/cuemby/agw/pkg/log"
)

// Loader owns the lifetime of the attached kernel programs. Attach is
// idempotent-safe to call once; Close detaches everything it attached.
type Loader struct {
	cgroupPath string
	disabled   bool
	logger     zerolog.Logger

	objs       bpfObjects
	cgroupLink link.Link
	skmsgLink  link.Link
	attached   bool
}

// New builds a Loader targeting cgroupPath. If disabled is true, Attach is
// a no-op that always succeeds — this is the --disable-fastpath flag.
func New(cgroupPath string, disabled bool) *Loader {
	return &Loader{
		cgroupPath: cgroupPath,
		disabled:   disabled,
		logger:     log.WithComponent("fastpath"),
	}
}

// Attach loads the compiled program pair, attaches the sockmap installer
// to the configured cgroup, and attaches the redirector to the SockMap.
// Any failure is returned to the caller, which is expected to log it and
// continue without the fast path — this method itself does not retry.
func (l *Loader) Attach() error {
	if l.disabled {
		l.logger.Info().Msg("fast path disabled by flag")
		metrics.SetFastpathAttached(false)
		return nil
	}

	if err := loadBpfObjects(&l.objs, nil); err != nil {
		return fmt.Errorf("fastpath: load programs: %w", err)
	}

	cgroupLink, err := link.AttachCgroup(link.CgroupOptions{
		Path:    l.cgroupPath,
		Attach:  ebpf.AttachCGroupSockOps,
		Program: l.objs.BpfSockmap,
	})
	if err != nil {
		l.objs.Close()
		return fmt.Errorf("fastpath: attach sockops to %s: %w", l.cgroupPath, err)
	}
	l.cgroupLink = cgroupLink

	skmsgLink, err := link.AttachRawLink(link.RawLinkOptions{
		Target:  l.objs.SockMap.FD(),
		Program: l.objs.BpfRedirect,
		Attach:  ebpf.AttachSkMsgVerdict,
	})
	if err != nil {
		l.cgroupLink.Close()
		l.objs.Close()
		return fmt.Errorf("fastpath: attach redirect to sockmap: %w", err)
	}
	l.skmsgLink = skmsgLink

	l.attached = true
	metrics.SetFastpathAttached(true)
	l.logger.Info().Str("cgroup", l.cgroupPath).Msg("kernel fast path attached")
	return nil
}

// Close detaches and releases every resource Attach acquired. Safe to call
// even if Attach failed or was never called.
func (l *Loader) Close() {
	if !l.attached {
		return
	}
	if l.skmsgLink != nil {
		_ = l.skmsgLink.Close()
	}
	if l.cgroupLink != nil {
		_ = l.cgroupLink.Close()
	}
	l.objs.Close()
	l.attached = false
	metrics.SetFastpathAttached(false)
}
