package ksync

// cpuRelax executes PAUSE, telling the core it is in a spin-wait loop.
// Implemented in relax_amd64.s.
func cpuRelax()
