package fpu

import (
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

// ControlBits returns the CR0/CR4 configuration for hardware FPU use on a
// core with flag set fs: emulation off, monitor-coprocessor and native
// error reporting on, and the OS-support bits for each save mechanism the
// core has.
func ControlBits(fs cpu.Features) platform.ControlBits {
	bits := platform.ControlBits{
		CR0Set:   platform.CR0MP | platform.CR0NE,
		CR0Clear: platform.CR0EM,
	}
	if fs.Has(cpu.FXSR) {
		bits.CR4Set |= platform.CR4OSFXSR
	}
	if fs.Has(cpu.SSE) {
		bits.CR4Set |= platform.CR4OSXMMEXCPT
	}
	if fs.Has(cpu.XSAVE) {
		bits.CR4Set |= platform.CR4OSXSAVE
	}
	return bits
}

// Bringup performs the one-time hardware configuration of the unit: write
// the control bits for fs, then reinitialize the register state.
func Bringup(m platform.Machine, fs cpu.Features) {
	m.WriteControl(ControlBits(fs))
	m.ResetFPU()
}

// Manager tracks whether its context currently owns the unit and holds the
// image that is restored on BeginUse and saved on EndUse.
//
// A Manager is owned by one execution context. Callers must not interleave
// BeginUse/EndUse on the same Manager from a nested interrupt, and on a
// hosted OS must pin the calling goroutine with runtime.LockOSThread for the
// duration of the pair.
type Manager struct {
	m      platform.Machine
	state  *State
	active bool
}

// NewManager returns an idle Manager whose image uses the richest format fs
// supports.
func NewManager(m platform.Machine, fs cpu.Features) *Manager {
	return &Manager{
		m:     m,
		state: NewState(SelectFormat(fs), fs.XSaveSize),
	}
}

// BeginUse loads the saved image into the hardware and marks the context
// active. It does nothing if the context is already active.
func (mg *Manager) BeginUse() {
	if mg.active {
		return
	}
	mg.m.Restore(mg.state.format, mg.state.image)
	mg.active = true
}

// EndUse saves the hardware into the image and marks the context idle. It
// does nothing if the context is idle.
func (mg *Manager) EndUse() {
	if !mg.active {
		return
	}
	mg.m.Save(mg.state.format, mg.state.image)
	mg.active = false
}

// Format returns the format chosen at construction.
func (mg *Manager) Format() Format { return mg.state.format }

// Active reports whether the context currently owns the unit.
func (mg *Manager) Active() bool { return mg.active }

// State returns the saved image. Its contents are only meaningful while the
// manager is idle.
func (mg *Manager) State() *State { return mg.state }

// Arena is a fixed set of managers indexed by context id (a logical CPU or
// task slot), for callers that keep one register image per context.
type Arena struct {
	managers []*Manager
}

// NewArena allocates n idle managers.
func NewArena(m platform.Machine, fs cpu.Features, n int) *Arena {
	a := &Arena{managers: make([]*Manager, n)}
	for i := range a.managers {
		a.managers[i] = NewManager(m, fs)
	}
	return a
}

// Context returns the manager for id, or nil if id is out of range.
func (a *Arena) Context(id int) *Manager {
	if id < 0 || id >= len(a.managers) {
		return nil
	}
	return a.managers[id]
}

// Len returns the number of contexts.
func (a *Arena) Len() int { return len(a.managers) }
