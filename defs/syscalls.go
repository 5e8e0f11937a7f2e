package defs

// Syscall numbers, Linux-style: read=0, write=1, ... This is the chosen
// resolution of the numbering question (see DESIGN.md); both the
// dispatch table and any user-side stub must agree on these exact values.
const (
	SYS_READ        = 0
	SYS_WRITE       = 1
	SYS_OPEN        = 2
	SYS_CLOSE       = 3
	SYS_FSTAT       = 5
	SYS_LSEEK       = 8
	SYS_SBRK        = 12
	SYS_ISATTY      = 13
	SYS_ARCH_PRCTL  = 158
	SYS_GET_REENT   = 200
	SYS_GETPID      = 39
	SYS_EXIT        = 60
	SYS_KILL        = 62
)

// SyscallName returns a human-readable name for a syscall number, or
// "unknown" for a number outside the table.
func SyscallName(n int) string {
	switch n {
	case SYS_READ:
		return "read"
	case SYS_WRITE:
		return "write"
	case SYS_OPEN:
		return "open"
	case SYS_CLOSE:
		return "close"
	case SYS_FSTAT:
		return "fstat"
	case SYS_LSEEK:
		return "lseek"
	case SYS_SBRK:
		return "sbrk"
	case SYS_ISATTY:
		return "isatty"
	case SYS_ARCH_PRCTL:
		return "arch_prctl"
	case SYS_GET_REENT:
		return "get_reent"
	case SYS_GETPID:
		return "getpid"
	case SYS_EXIT:
		return "exit"
	case SYS_KILL:
		return "kill"
	default:
		return "unknown"
	}
}
