// Package sandbox implements the child-side bring-up sequence of §4.5:
// a bounded memory allocator wrapper, a best-effort in-process syscall
// gate, and the kernel-enforced seccomp lockdown that is the actual
// isolation boundary.
package sandbox

// syscallNumbers maps x86_64 syscall names to their numbers, grounded in
// the teacher's linux/seccomp.go table. Only the subset needed to name
// blacklist/whitelist entries is kept; like the teacher, this is
// intentionally a partial table, not a complete libseccomp replacement.
var syscallNumbers = map[string]int{
	"read": 0, "write": 1, "open": 2, "close": 3, "stat": 4,
	"fstat": 5, "lstat": 6, "poll": 7, "lseek": 8, "mmap": 9,
	"mprotect": 10, "munmap": 11, "brk": 12, "rt_sigaction": 13,
	"rt_sigprocmask": 14, "rt_sigreturn": 15, "ioctl": 16,
	"access": 21, "pipe": 22, "select": 23, "sched_yield": 24,
	"mremap": 25, "msync": 26, "mincore": 27, "madvise": 28,
	"dup": 32, "dup2": 33, "pause": 34, "nanosleep": 35,
	"getpid": 39, "socket": 41, "connect": 42, "accept": 43,
	"clone": 56, "fork": 57, "vfork": 58, "execve": 59,
	"exit": 60, "wait4": 61, "kill": 62, "uname": 63,
	"fcntl": 72, "gettimeofday": 96, "getrlimit": 97,
	"ptrace": 101, "getuid": 102, "getgid": 104,
	"futex": 202, "sched_getaffinity": 204,
	"clock_gettime": 228, "clock_getres": 229,
	"clock_nanosleep": 230, "exit_group": 231,
	"tgkill": 234, "process_vm_readv": 310, "process_vm_writev": 311,
	"getrandom": 318, "memfd_create": 319,
	"tkill": 200, "personality": 135,
}

// SyscallNumber returns the x86_64 syscall number for name.
func SyscallNumber(name string) (int, bool) {
	nr, ok := syscallNumbers[name]
	return nr, ok
}

// DefaultBlacklist is the syscall-gate blacklist of §4.5 item 2: memory-map
// variants, signal masking, and thread-targeted kill, the categories the
// spec calls out by name.
var DefaultBlacklist = []string{
	"mmap", "mremap", "munmap", "mprotect",
	"rt_sigprocmask", "rt_sigaction",
	"tkill", "tgkill", "ptrace",
	"process_vm_readv", "process_vm_writev",
}

// StrictWhitelist is the minimal syscall set legal under SECCOMP_MODE_STRICT:
// read, write, the exit variants, rt_sigreturn (needed to return from a
// signal handler cleanly), and sched_yield. Anything else kills the
// process (§4.5 item 3).
var StrictWhitelist = []string{"read", "write", "exit", "exit_group", "rt_sigreturn", "sched_yield"}
