//go:build !linux

package sandbox

import "fmt"

// installSeccomp is unavailable outside Linux; prctl(PR_SET_SECCOMP, ...)
// has no equivalent on other platforms. Callers should expect Lockdown to
// fail and treat that as sandbox bring-up failure (§7: "child exits
// nonzero").
func installSeccomp(policy Policy, blacklist []string) error {
	return fmt.Errorf("sandbox: seccomp lockdown is only available on linux")
}
