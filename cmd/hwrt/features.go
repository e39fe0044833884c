package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/fpu"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	badStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	tableBorderColor  = "#705090"
)

// newTable returns a table in the house style; the first column is right
// aligned.
func newTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 0:
				return rightAlignedStyle
			default:
				return normalStyle
			}
		})
}

// interactive reports whether stdout is a terminal. Piped output gets no
// colors so it stays greppable.
func interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func mark(ok bool) string {
	switch {
	case !interactive():
		if ok {
			return "yes"
		}
		return "no"
	case ok:
		return okStyle.Render("✓")
	default:
		return badStyle.Render("✗")
	}
}

func newFeaturesCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show detected features, FPU configuration and the dispatch table",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			printFeatures(e, gf.sim == "")
			return nil
		},
	}
}

func printFeatures(e *env, host bool) {
	reg := e.sub.Registry()
	info := e.sub.Info()
	det, fs := reg.Detected(), reg.Features()

	fmt.Println(titleStyle.Render("Processor"))
	fmt.Printf("  arch:       %s\n", info.Arch)
	fmt.Printf("  variant:    %s\n", info.Variant)
	if info.Vendor != "" {
		fmt.Printf("  vendor:     %s\n", info.Vendor)
	}
	fmt.Printf("  max leaf:   %#x / %#x\n", det.MaxLeaf, det.MaxExtendedLeaf)
	fmt.Printf("  features:   %s\n\n", fs.Summary())

	var hints cpu.Hints
	headers := []string{"Feature", "Detected", "Enabled"}
	if host {
		hints = cpu.HostHints()
		headers = append(headers, "x/sys/cpu")
	}
	tbl := newTable(headers...)
	for _, f := range cpu.AllFeatures() {
		row := []string{f.String(), mark(det.Has(f)), mark(fs.Has(f))}
		if host {
			known := false
			for _, k := range hints.Known {
				known = known || k == f
			}
			cell := "-"
			if known {
				cell = mark(hints.Has(f))
			}
			row = append(row, cell)
		}
		tbl.Row(row...)
	}
	fmt.Println(tbl.String())

	if host {
		if len(hints.Extra) > 0 {
			fmt.Printf("  other extensions: %s\n", strings.Join(hints.Extra, " "))
		}
		if diff := reg.CrossCheck(hints); len(diff) > 0 {
			names := make([]string, len(diff))
			for i, f := range diff {
				names[i] = f.String()
			}
			fmt.Printf("  %s detection disagrees with x/sys/cpu on: %s\n", badStyle.Render("!"), strings.Join(names, " "))
		}
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("FPU"))
	format := fpu.SelectFormat(fs)
	bits := fpu.ControlBits(fs)
	fmt.Printf("  format:     %s (%d bytes, %d-byte aligned)\n", format, format.ImageSize(fs.XSaveSize), format.Alignment())
	fmt.Printf("  scope:      %s (%d context(s))\n", info.FPUScope, info.Contexts)
	fmt.Printf("  CR0:        set %#x clear %#x\n", bits.CR0Set, bits.CR0Clear)
	fmt.Printf("  CR4:        set %#x\n", bits.CR4Set)
	clean := fpu.NewState(format, fs.XSaveSize)
	cw := clean.ControlWord()
	fmt.Printf("  clean FCW:  %#06x (masked %s, rounding %s)\n", uint16(cw), cw.Masked(), cw.Rounding())
	if mx, ok := clean.MXCSR(); ok {
		fmt.Printf("  clean MXCSR: %#010x (masked %s)\n", uint32(mx), mx.Masked())
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Dispatch"))
	dt := newTable("Operation", "Strategy")
	for _, op := range bulk.Ops() {
		dt.Row(op.String(), info.Dispatch[op.String()])
	}
	fmt.Println(dt.String())
}
