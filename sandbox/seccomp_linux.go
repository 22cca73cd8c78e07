//go:build linux

package sandbox

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Seccomp/BPF constants, grounded in the teacher's linux/seccomp.go.
const (
	seccompModeStrict = 1
	seccompModeFilter = 2

	seccompRetKillProcess = 0x80000000
	seccompRetErrno       = 0x00050000
	seccompRetAllow       = 0x7fff0000

	bpfLD  = 0x00
	bpfJMP = 0x05
	bpfRET = 0x06
	bpfW   = 0x00
	bpfABS = 0x20
	bpfJEQ = 0x10
	bpfK   = 0x00

	offsetNR   = 0
	offsetArch = 4

	auditArchX86_64 = 0xc000003e

	prSetNoNewPrivs = 38
	prSetSeccomp    = 22
)

type sockFilter struct {
	Code uint16
	Jt   uint8
	Jf   uint8
	K    uint32
}

type sockFprog struct {
	Len    uint16
	Filter *sockFilter
}

func bpfStmt(code uint16, k uint32) sockFilter {
	return sockFilter{Code: code, K: k}
}

func bpfJump(code uint16, k uint32, jt, jf uint8) sockFilter {
	return sockFilter{Code: code, Jt: jt, Jf: jf, K: k}
}

// installSeccomp enters the kernel seccomp lockdown selected by policy.
func installSeccomp(policy Policy, blacklist []string) error {
	if _, _, errno := unix.Syscall(unix.SYS_PRCTL, prSetNoNewPrivs, 1, 0); errno != 0 {
		return fmt.Errorf("sandbox: prctl(PR_SET_NO_NEW_PRIVS): %w", errno)
	}

	switch policy {
	case StrictMode:
		if _, _, errno := unix.Syscall(unix.SYS_PRCTL, prSetSeccomp, seccompModeStrict, 0); errno != 0 {
			return fmt.Errorf("sandbox: prctl(PR_SET_SECCOMP, STRICT): %w", errno)
		}
		return nil
	case FilterMode:
		filter := buildFilterModeProgram(blacklist)
		prog := sockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
		if _, _, errno := unix.Syscall(unix.SYS_PRCTL, prSetSeccomp, seccompModeFilter, uintptr(unsafe.Pointer(&prog))); errno != 0 {
			return fmt.Errorf("sandbox: prctl(PR_SET_SECCOMP, FILTER): %w", errno)
		}
		return nil
	default:
		return fmt.Errorf("sandbox: unknown policy %d", policy)
	}
}

// buildFilterModeProgram builds a classic-BPF program: kill the process on
// a foreign architecture, return -ENOMEM (via SECCOMP_RET_ERRNO) for any
// blacklisted syscall, and SECCOMP_RET_ALLOW for everything else (§9's
// "equivalent whitelist" substitute — grounded in the teacher's
// buildSeccompFilter/bpfStmt/bpfJump in linux/seccomp.go).
func buildFilterModeProgram(blacklist []string) []sockFilter {
	var f []sockFilter

	f = append(f, bpfStmt(bpfLD|bpfW|bpfABS, offsetArch))
	f = append(f, bpfJump(bpfJMP|bpfJEQ|bpfK, auditArchX86_64, 1, 0))
	f = append(f, bpfStmt(bpfRET|bpfK, seccompRetKillProcess))

	f = append(f, bpfStmt(bpfLD|bpfW|bpfABS, offsetNR))

	// ENOMEM is what the C original returns for a blocked syscall (§4.5
	// item 2: "optionally setting an errno-equivalent to out-of-memory").
	const enomem = 12
	action := uint32(seccompRetErrno | (enomem & 0xffff))

	for _, name := range blacklist {
		nr, ok := SyscallNumber(name)
		if !ok {
			continue
		}
		f = append(f, bpfJump(bpfJMP|bpfJEQ|bpfK, uint32(nr), 0, 1))
		f = append(f, bpfStmt(bpfRET|bpfK, action))
	}

	f = append(f, bpfStmt(bpfRET|bpfK, seccompRetAllow))
	return f
}
