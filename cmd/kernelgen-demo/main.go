// kernelgen-demo runs a handful of canonical programs through the compiler
// core and prints the resulting kernel list as a styled table: one row per
// emitted kernel, tile size, inputs/outputs, and flops/bytes humanized.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/tilecore/kernelgen/kernelgen"
)

var (
	flagProgram = flag.String("program", "all", "Which canonical program to compile: identity, matmul, prng, scatter, or all.")
	flagTrials  = flag.Int("tile_trials", 4, "Number of tile-size candidates to search per kernel.")
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).PaddingLeft(1).PaddingRight(1)
	evenRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).PaddingLeft(1).PaddingRight(1)
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == 1 {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			return s
		})
}

type namedProgram struct {
	name string
	prog *kernelgen.Program
	bind kernelgen.Bindings
	outs []string
}

func buildIdentity() namedProgram {
	prog := kernelgen.NewProgram()
	bind := kernelgen.NewBindings()
	bind.BindTensor("in", kernelgen.MakeTensorShape(dtypes.Float32, 1024))
	bind.BindTensor("out", kernelgen.MakeTensorShape(dtypes.Float32, 1024))
	prog.AddContraction("out", []string{"in"}, &kernelgen.Contraction{
		Specs: []kernelgen.TensorSpec{
			{ID: "out", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i")}},
			{ID: "in", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i")}},
		},
	})
	return namedProgram{name: "identity", prog: prog, bind: bind, outs: []string{"out"}}
}

func buildMatmulBias() namedProgram {
	prog := kernelgen.NewProgram()
	bind := kernelgen.NewBindings()
	bind.BindTensor("A", kernelgen.MakeTensorShape(dtypes.Float32, 64, 128))
	bind.BindTensor("B", kernelgen.MakeTensorShape(dtypes.Float32, 128, 256))
	bind.BindTensor("C", kernelgen.MakeTensorShape(dtypes.Float32, 64, 256))
	bind.BindTensor("D", kernelgen.MakeTensorShape(dtypes.Float32, 64, 256))
	bind.BindTensor("bias", kernelgen.MakeTensorShape(dtypes.Float32, 256))
	bind.BindTensor("E", kernelgen.MakeTensorShape(dtypes.Float32, 64, 256))

	prog.AddContraction("C", []string{"A", "B"}, &kernelgen.Contraction{
		Specs: []kernelgen.TensorSpec{
			{ID: "C", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i"), kernelgen.VarPolynomial("j")}},
			{ID: "A", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i"), kernelgen.VarPolynomial("k")}},
			{ID: "B", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("k"), kernelgen.VarPolynomial("j")}},
		},
	})
	prog.AddFunction("D", []string{"C"}, "reshape", nil, false)
	prog.AddFunction("E", []string{"D", "bias"}, "add", nil, false)
	return namedProgram{name: "matmul", prog: prog, bind: bind, outs: []string{"E"}}
}

func buildPRNGTriple() namedProgram {
	prog := kernelgen.NewProgram()
	bind := kernelgen.NewBindings()
	shape := kernelgen.MakeTensorShape(dtypes.Float32, 512)
	for _, name := range []string{"seed", "t", "seed2", "value"} {
		bind.BindTensor(name, shape)
	}
	prog.AddFunction("t", []string{"seed"}, "prng_step", nil, true)
	prog.AddFunction("seed2", []string{"t"}, "prng_state", nil, true)
	prog.AddFunction("value", []string{"t"}, "prng_value", nil, true)
	return namedProgram{name: "prng", prog: prog, bind: bind, outs: []string{"seed2", "value"}}
}

func buildScatter() namedProgram {
	prog := kernelgen.NewProgram()
	bind := kernelgen.NewBindings()
	bind.BindTensor("out", kernelgen.MakeTensorShape(dtypes.Float32, 32))
	bind.BindTensor("in", kernelgen.MakeTensorShape(dtypes.Float32, 16))
	prog.AddContraction("out", []string{"in"}, &kernelgen.Contraction{
		Specs: []kernelgen.TensorSpec{
			{ID: "out", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i").ScaleInt(2)}},
			{ID: "in", IndexPolynomial: []kernelgen.Polynomial{kernelgen.VarPolynomial("i")}},
		},
	})
	return namedProgram{name: "scatter", prog: prog, bind: bind, outs: []string{"out"}}
}

func allPrograms() []namedProgram {
	return []namedProgram{buildIdentity(), buildMatmulBias(), buildPRNGTriple(), buildScatter()}
}

func selectPrograms() []namedProgram {
	if *flagProgram == "all" {
		return allPrograms()
	}
	for _, np := range allPrograms() {
		if np.name == *flagProgram {
			return []namedProgram{np}
		}
	}
	klog.Exitf("unknown -program %q: want one of identity, matmul, prng, scatter, all", *flagProgram)
	return nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	programs := selectPrograms()
	settings := kernelgen.DefaultHardwareSettings()

	bar := progressbar.NewOptions(len(programs),
		progressbar.OptionSetDescription("compiling"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
	)

	out := termenv.NewOutput(os.Stdout)
	out.HideCursor()
	defer out.ShowCursor()

	var allKernels []kernelgen.KernelInfo
	for _, np := range programs {
		kl := must.M1(kernelgen.GenerateProgram(np.prog, np.bind, np.outs, settings, np.name, *flagTrials))
		allKernels = append(allKernels, kl.Kernels...)
		_ = bar.Add(1)
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Println()

	fmt.Println(titleStyle.Render("Emitted kernels"))
	table := newTable()
	table.Row("Kernel", "Tile", "Inputs", "Outputs", "Flops", "Bytes")
	for _, ki := range allKernels {
		table.Row(
			ki.Name,
			fmt.Sprint(ki.TileSize),
			fmt.Sprint(ki.Inputs),
			fmt.Sprint(ki.Outputs),
			humanize.Comma(ki.TotFlops),
			humanize.Bytes(uint64(ki.TotBytes)),
		)
	}
	fmt.Println(table.Render())

	if len(allKernels) == 0 {
		os.Exit(1)
	}
}
