package kernelgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/tilecore/kernelgen/kernelgen/internal/progress"
)

// KernelList is the Driver's output (spec §6): the kernels in emission
// order, the accumulated variable-rewrite table, and a types map restricted
// to variables that appear as some kernel's input or output.
type KernelList struct {
	Kernels     []KernelInfo
	VarRewrites *VarRewrites
	Types       map[string]Binding
}

// GenerateProgram walks prog in source order, lowering, zero/copy-detecting,
// unifying, and tile-optimizing each contraction or elementwise seed into a
// kernel (spec §4.6). bindings must already carry a TensorShape or scalar
// Binding for every variable prog references, including intermediates --
// shape/type inference is an external binder's job this core does not
// perform (spec §1). programOutputs names the subset of variables the
// caller designates as the program's final results (the output_shapes of
// spec §6's external interface); any variable prog's use-def graph has no
// defining op for (constants included, since op_defs omits them) is treated
// as a program input.
//
// A panic raised by an internal invariant check anywhere in the pipeline is
// recovered here and reported as a KindInternalInvariant error (spec §7).
func GenerateProgram(prog *Program, bindings Bindings, programOutputs []string, settings HardwareSettings, id string, tileTrials int) (kl *KernelList, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = internalInvariantf("recovered panic: %v", e)
			} else {
				err = internalInvariantf("recovered panic: %v", r)
			}
			kl = nil
		}
	}()

	outputSet := make(map[string]bool, len(programOutputs))
	for _, n := range programOutputs {
		outputSet[n] = true
	}

	ud := BuildUseDef(prog)
	rewrites := NewVarRewrites()
	ticker := progress.NewTicker(2 * time.Second)

	kl = &KernelList{VarRewrites: rewrites, Types: map[string]Binding{}}
	counter := 0
	nextName := func() string {
		name := canonicalKernelName(id, counter)
		counter++
		return name
	}

	recordTypes := func(ki *KernelInfo) {
		for _, n := range ki.Inputs {
			if b, ok := bindings[n]; ok {
				kl.Types[n] = b
			}
		}
		for _, n := range ki.Outputs {
			if b, ok := bindings[n]; ok {
				kl.Types[n] = b
			}
		}
	}

	for idx := 0; idx < len(prog.Ops); idx++ {
		if prog.Ops[idx].computed {
			continue
		}
		if ticker.Tick() {
			klog.V(1).Infof("kernelgen: driver at op %d/%d", idx, len(prog.Ops))
		}

		op := prog.Ops[idx]
		switch op.Tag {
		case OpConstant:
			prog.Ops[idx].computed = true

		case OpFunction:
			if op.Function.IsSpecial {
				if err := handleSpecial(prog, idx, ud, bindings, rewrites, kl, recordTypes, settings, tileTrials, nextName); err != nil {
					return nil, err
				}
				continue
			}
			shape, ok := bindings.Shape(op.Output)
			if !ok {
				return nil, invalidProgramf("missing tensor shape binding for %q", op.Output)
			}
			flat := NewElementwiseSeed(op.Output, shape)
			warSafe, err := DoUnification(prog, idx, flat, bindings, ud, rewrites, outputSet)
			if err != nil {
				return nil, err
			}
			klog.V(4).Infof("kernelgen: unified elementwise seed %q into %d post-ops", op.Output, len(flat.PostOps))
			ki, ok, err := ContractionWrap(flat, rewrites, nextName(), settings, tileTrials, warSafe)
			if err != nil {
				return nil, err
			}
			if ok {
				recordTypes(ki)
				kl.Kernels = append(kl.Kernels, *ki)
			}

		case OpContraction:
			flat, err := LowerContraction(op.Contraction, bindings)
			if err != nil {
				return nil, err
			}
			klog.V(3).Infof("kernelgen: lowered contraction for %q: %s", op.Output, flat.KeyString())

			if NeedsZero(flat) {
				shape, ok := bindings.Shape(op.Output)
				if !ok {
					return nil, invalidProgramf("missing tensor shape binding for %q", op.Output)
				}
				prefill := buildPrefill(flat.Output, shape, op.Contraction.UseDefault, bindings)
				pki, ok, err := ContractionWrap(prefill, rewrites, nextName(), settings, tileTrials, map[string]bool{})
				if err != nil {
					return nil, err
				}
				if ok {
					recordTypes(pki)
					kl.Kernels = append(kl.Kernels, *pki)
				}

				flat.KernelOutputs = []string{flat.Output}
				ki, ok, err := ContractionWrap(flat, rewrites, nextName(), settings, tileTrials, map[string]bool{})
				if err != nil {
					return nil, err
				}
				if ok {
					recordTypes(ki)
					kl.Kernels = append(kl.Kernels, *ki)
				}
				prog.Ops[idx].computed = true
			} else {
				warSafe, err := DoUnification(prog, idx, flat, bindings, ud, rewrites, outputSet)
				if err != nil {
					return nil, err
				}
				klog.V(4).Infof("kernelgen: unified contraction %q into %d post-ops", op.Output, len(flat.PostOps))
				ki, ok, err := ContractionWrap(flat, rewrites, nextName(), settings, tileTrials, warSafe)
				if err != nil {
					return nil, err
				}
				if ok {
					recordTypes(ki)
					kl.Kernels = append(kl.Kernels, *ki)
				}
			}

		default:
			exceptions.Panicf("kernelgen: op %q has unrecognized tag %v", op.Output, op.Tag)
		}
	}

	for _, ki := range kl.Kernels {
		klog.V(1).Infof("kernelgen: kernel %q flops=%d bytes=%d", ki.Name, ki.TotFlops, ki.TotBytes)
	}
	return kl, nil
}

// buildPrefill constructs the zero-fill or broadcast-copy kernel emitted
// ahead of a contraction whose output NeedsZero (spec §4.1). When useDefault
// is set the prefill broadcast-copies it into output; otherwise it zero-fills.
func buildPrefill(output string, shape TensorShape, useDefault string, bindings Bindings) *FlatContraction {
	flat := NewElementwiseSeed(output, shape)
	if useDefault == "" {
		flat.PostOps = []Op{{Tag: OpFunction, Output: output, Function: Function{Fn: "zero_fill"}}}
		flat.KernelOutputs = []string{output}
		return flat
	}
	defaultShape, ok := bindings.Shape(useDefault)
	if !ok {
		defaultShape = shape
	}
	access, err := buildPostOpInputAccess(flat, bindings, defaultShape, useDefault)
	if err != nil {
		// Falls back to a dense identity access over output's own shape; a
		// use_default binding that cannot be projected onto the output is
		// not reported as an error, here or in LowerContraction.
		access = flat.Access[0].Clone()
	}
	flat.PostOps = []Op{{Tag: OpFunction, Output: output, Inputs: []string{useDefault}, Function: Function{Fn: "broadcast_copy"}}}
	flat.PostOpInputs[useDefault] = access
	flat.KernelOutputs = []string{output}
	return flat
}

// handleSpecial implements the PRNG-triple fusion of spec §4.6: step is the
// seed; prng_state and prng_value ops consuming its tuple output are
// absorbed as extra params. A state op with no paired value op is rewritten
// in place as an identity of the step's own input (spec §4.6); a value op
// with no paired state op is an invalid-program error (spec §4.6's ordering
// takes precedence over spec §6's summary phrasing of the same rule, which
// inverts which half is fatal -- see DESIGN.md). If neither companion op is
// present, the step's tuple output is unused and nothing is emitted.
func handleSpecial(prog *Program, stepIdx int, ud *UseDefGraph, bindings Bindings, rewrites *VarRewrites, kl *KernelList, recordTypes func(*KernelInfo), settings HardwareSettings, tileTrials int, nextName func() string) error {
	step := prog.Ops[stepIdx]
	if step.Function.Fn != "prng_step" {
		return invalidProgramf("unsupported special function %q at %q", step.Function.Fn, step.Output)
	}

	stateIdx, valueIdx := -1, -1
	for _, c := range ud.UsesOf(step.Output) {
		cop := prog.Ops[c]
		if cop.computed || cop.Tag != OpFunction {
			continue
		}
		switch cop.Function.Fn {
		case "prng_state":
			if stateIdx == -1 {
				stateIdx = c
			}
		case "prng_value":
			if valueIdx == -1 {
				valueIdx = c
			}
		}
	}

	if stateIdx == -1 && valueIdx == -1 {
		// Neither companion op is present: the step's tuple output is unused,
		// so there is nothing to fuse or emit (generate.cc:703's
		// `if (vout=="" && sout=="") continue;`).
		return nil
	}
	if stateIdx == -1 && valueIdx != -1 {
		return invalidProgramf("prng_value %q has no matching prng_state/prng_step triple", prog.Ops[valueIdx].Output)
	}
	if stateIdx != -1 && valueIdx == -1 {
		prog.Ops[stateIdx] = Op{
			Tag:      OpFunction,
			Output:   prog.Ops[stateIdx].Output,
			Inputs:   append([]string(nil), step.Inputs...),
			Function: Function{Fn: "ident"},
		}
		prog.Ops[stepIdx].computed = true
		return nil
	}

	var extraParams []string
	if stateIdx != -1 {
		extraParams = append(extraParams, prog.Ops[stateIdx].Output)
		prog.Ops[stateIdx].computed = true
	}
	if valueIdx != -1 {
		extraParams = append(extraParams, prog.Ops[valueIdx].Output)
		prog.Ops[valueIdx].computed = true
	}

	shape, ok := bindings.Shape(step.Output)
	if !ok {
		return invalidProgramf("missing tensor shape binding for %q", step.Output)
	}
	flat := NewElementwiseSeed(step.Output, shape)
	stepOp := step
	stepOp.Function.Params = append(append([]string(nil), step.Function.Params...), extraParams...)
	flat.PostOps = []Op{stepOp}
	flat.KernelOutputs = append([]string{step.Output}, extraParams...)
	prog.Ops[stepIdx].computed = true

	ki, ok, err := ContractionWrap(flat, rewrites, nextName(), settings, tileTrials, map[string]bool{})
	if err != nil {
		return err
	}
	if ok {
		recordTypes(ki)
		kl.Kernels = append(kl.Kernels, *ki)
	}
	return nil
}

// canonicalKernelName implements spec §4.9: prefix id with "kernel_",
// replacing every non-alphanumeric rune with "_", then append "_<n>".
func canonicalKernelName(id string, n int) string {
	var b strings.Builder
	b.WriteString("kernel_")
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	fmt.Fprintf(&b, "_%d", n)
	return b.String()
}
