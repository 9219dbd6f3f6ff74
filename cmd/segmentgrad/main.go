// Package main provides the segmentgrad CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/born-ml/segmentgrad/autodiff"
	"github.com/born-ml/segmentgrad/backend/cpu"
	"github.com/born-ml/segmentgrad/ops"
	"github.com/born-ml/segmentgrad/tensor"
)

const version = "v0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	switch flag.Arg(0) {
	case "version":
		fmt.Printf("segmentgrad %s\n", version)
	case "ops":
		listOps()
	case "demo":
		demo()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "segmentgrad %s - differentiable gather and segment sum\n\n", version)
	fmt.Fprintln(os.Stderr, "Usage: segmentgrad [flags] <command>")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  version    Show version")
	fmt.Fprintln(os.Stderr, "  ops        List registered operators")
	fmt.Fprintln(os.Stderr, "  demo       Run gather and segment sum with their gradients")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}

func listOps() {
	must.M1(ops.Registry())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OP\tKERNEL\tINPUTS\tGRADIENT\tSUMMARY")
	for _, def := range ops.All() {
		grad := "-"
		if def.IsDifferentiable() {
			grad = strings.Join(def.Differentiable, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			def.Name, def.Kernel, strings.Join(def.Inputs, ","), grad, def.Summary)
	}
	must.M(w.Flush())
}

func demo() {
	e := autodiff.New(cpu.New(), autodiff.WithConfig(autodiff.ConfigFromEnv()))
	defer func() { must.M(e.Close()) }()

	x := must.M1(tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU))
	y, grads, err := e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.Gather(e, x, []int32{1, 1, 0}, 0)
	}, []*tensor.RawTensor{x}, nil)
	must.M(err)
	fmt.Printf("gather(x=%v, indices=[1 1 0], axis=0)\n  y  = %v\n  dx = %v\n",
		tensor.Values[float32](x), tensor.Values[float32](y), tensor.Values[float32](grads[0]))

	data := must.M1(tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, tensor.CPU))
	y, grads, err = e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.UnsortedSegmentSum(e, data, []int32{1, 2, 0, -1}, 3)
	}, []*tensor.RawTensor{data}, nil)
	must.M(err)
	fmt.Printf("unsortedSegmentSum(x=%v, segmentIds=[1 2 0 -1], numSegments=3)\n  y  = %v\n  dx = %v\n",
		tensor.Values[float32](data), tensor.Values[float32](y), tensor.Values[float32](grads[0]))

	klog.V(1).Infof("memory: %s", e.Memory())
}
