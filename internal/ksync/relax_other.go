//go:build !amd64

package ksync

// cpuRelax is a no-op where no spin-wait hint is wired up.
func cpuRelax() {}
