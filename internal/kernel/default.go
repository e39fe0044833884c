package kernel

import (
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

// Default is the process-wide subsystem on the host processor, sharing the
// process-wide feature registry.
var Default = New(platform.Host(), WithRegistry(cpu.Default))

// SubsystemInit initializes Default.
func SubsystemInit() { Default.Init() }

// FPUBegin hands the unit to the kernel context of Default.
func FPUBegin() { Default.FPUBegin() }

// FPUEnd saves the kernel context of Default.
func FPUEnd() { Default.FPUEnd() }
