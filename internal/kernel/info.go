package kernel

import (
	"runtime"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/config"
	"github.com/hartyporpoise/hwrt/internal/cpu"
)

// Info describes the state of a subsystem, safe to marshal to JSON.
type Info struct {
	Ready     bool              `json:"ready"`
	Arch      string            `json:"arch"`
	Variant   string            `json:"variant"`
	Vendor    string            `json:"vendor,omitempty"`
	Features  []string          `json:"features"`
	Disabled  []string          `json:"disabled,omitempty"` // detected but forced off
	XSaveSize int               `json:"xsave_size"`
	FPUFormat string            `json:"fpu_format,omitempty"`
	FPUScope  string            `json:"fpu_scope"`
	Contexts  int               `json:"contexts"`
	Dispatch  map[string]string `json:"dispatch"`
}

// Info returns a description of s.
func (s *Subsystem) Info() Info {
	fs := s.registry.Features()
	info := Info{
		Ready:     s.ready.Load(),
		Arch:      runtime.GOARCH,
		Variant:   s.registry.Variant().String(),
		Vendor:    fs.Vendor,
		Features:  names(fs.List()),
		XSaveSize: fs.XSaveSize,
		FPUScope:  string(config.ScopeGlobal),
		Contexts:  1,
		Dispatch:  make(map[string]string),
	}
	for _, f := range s.registry.Detected().List() {
		if !fs.Has(f) {
			info.Disabled = append(info.Disabled, f.String())
		}
	}
	if info.Ready {
		info.FPUFormat = s.global.Format().String()
		if s.arena != nil {
			info.FPUScope = string(config.ScopePerContext)
			info.Contexts = s.arena.Len()
		}
	}
	tbl := s.table.Load()
	for _, op := range bulk.Ops() {
		info.Dispatch[op.String()] = tbl.Level(op).String()
	}
	return info
}

func names(fs []cpu.Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
