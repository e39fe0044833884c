//go:build !amd64

package platform

// HostMachine is a stub on architectures without the x86 identification
// and save/restore instructions. It reports identification unsupported and
// no legacy math unit, so the runtime layer falls back to scalar paths and
// FPU save/restore becomes a no-op.
type HostMachine struct{}

var host = &HostMachine{}

// Host returns the machine backed by the running processor.
func Host() *HostMachine { return host }

func (h *HostMachine) IdentifySupported() bool                        { return false }
func (h *HostMachine) CPUID(leaf, subleaf uint32) (a, b, c, d uint32) { return 0, 0, 0, 0 }
func (h *HostMachine) XCR0() uint64                                   { return 0 }
func (h *HostMachine) MathUnitPresent() bool                          { return false }
func (h *HostMachine) WriteControl(ControlBits)                       {}
func (h *HostMachine) ResetFPU()                                      {}
func (h *HostMachine) Save(SaveFormat, []byte)                        {}
func (h *HostMachine) Restore(SaveFormat, []byte)                     {}

// Control always reports nothing written.
func (h *HostMachine) Control() (ControlBits, int) { return ControlBits{}, 0 }
