/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math/cmplx"
	"math/rand"
	"os"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/grid"
	"github.com/notargets/gospectral/tensor"
)

type VerifyModel struct {
	ConfigFile string
	Ranks      int
}

// RunParameters describes the grid a verification run is built on.
type RunParameters struct {
	Title      string    `yaml:"Title"`
	N          []int     `yaml:"N"`
	L          []float64 `yaml:"L"`
	Periodic   []bool    `yaml:"Periodic"`
	SharedAxes []int     `yaml:"SharedAxes"`
	Halo       int       `yaml:"Halo"`
	Backend    string    `yaml:"Backend"`
	Tolerance  float64   `yaml:"Tolerance"`
}

func (rp *RunParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, rp)
}

func (rp *RunParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("%v\t= N\n", rp.N)
	fmt.Printf("%v\t= L\n", rp.L)
	fmt.Printf("%v\t= Periodic\n", rp.Periodic)
	fmt.Printf("%v\t\t= SharedAxes\n", rp.SharedAxes)
	fmt.Printf("[%d]\t\t\t= Halo\n", rp.Halo)
	fmt.Printf("[%s]\t\t= Backend\n", rp.Backend)
	fmt.Printf("%8.2e\t\t= Tolerance\n", rp.Tolerance)
}

// VerifyCmd represents the verify command
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify decomposition and transform invariants for a configuration",
	Long: `
Builds the decomposition described by a run parameters file, runs the halo
exchange and a spectral round trip on every rank, and reports the largest
deviation from the expected values,

gospectral verify -I params.yaml -r 4 `,
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		vm := &VerifyModel{}
		if vm.ConfigFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		vm.Ranks, _ = cmd.Flags().GetInt("ranks")
		rp := processVerifyInput(vm)
		RunVerify(vm, rp)
	},
}

func init() {
	rootCmd.AddCommand(VerifyCmd)
	VerifyCmd.Flags().StringP("inputParametersFile", "I", "", "run parameters in yaml format")
	VerifyCmd.Flags().IntP("ranks", "r", 4, "number of ranks to decompose over")
}

func processVerifyInput(vm *VerifyModel) (rp *RunParameters) {
	if len(vm.ConfigFile) == 0 {
		fmt.Printf("error: must supply a run parameters file (-I, --inputParametersFile) in yaml format\n")
		exampleFile := `
########################################
Title: "64 cubed, z decomposed"
N: [64, 64, 64]
L: [6.283, 6.283, 6.283]
Periodic: [true, true, false]
SharedAxes: [0]
Halo: 2
Backend: "serial"
Tolerance: 1.e-10
########################################
`
		fmt.Printf("example parameters file:%s", exampleFile)
		os.Exit(1)
	}
	data, err := os.ReadFile(vm.ConfigFile)
	if err != nil {
		fmt.Printf("error reading run parameters file: %s\n", err.Error())
		os.Exit(1)
	}
	rp = &RunParameters{Tolerance: 1.e-10}
	if err = rp.Parse(data); err != nil {
		fmt.Printf("error parsing run parameters file: %s\n", err.Error())
		os.Exit(1)
	}
	rp.Print()
	return
}

func RunVerify(vm *VerifyModel, rp *RunParameters) {
	var (
		mu       sync.Mutex
		worstDev float64
		haloBad  int
	)
	w := comm.NewWorld(vm.Ranks)
	w.Run(func(c *comm.Comm) {
		g, err := grid.New(c, grid.Config{
			N:          rp.N,
			L:          rp.L,
			Periodic:   rp.Periodic,
			SharedAxes: rp.SharedAxes,
			Halo:       rp.Halo,
			Backend:    rp.Backend,
		})
		if err != nil {
			klog.Fatalf("rank %d: %v", c.Rank(), err)
		}

		bad := verifyHalo(c, g)
		dev := verifyRoundTrip(c, g)

		mu.Lock()
		haloBad += bad
		if dev > worstDev {
			worstDev = dev
		}
		mu.Unlock()
	})

	fmt.Printf("halo cells out of place: %d\n", haloBad)
	fmt.Printf("worst round-trip deviation: %8.2e (tolerance %8.2e)\n",
		worstDev, rp.Tolerance)
	if haloBad > 0 || worstDev > rp.Tolerance {
		fmt.Println("FAIL")
		os.Exit(1)
	}
	fmt.Println("PASS")
}

// verifyHalo fills the interior with the flattened global index, syncs, and
// counts halo cells that do not hold their periodic neighbor's value.
func verifyHalo(c *comm.Comm, g *grid.Grid) (bad int) {
	d := g.Decomposition(false)
	sd := d.MySubdomain
	u := tensor.NewDense[float64](sd.Shape...)

	flat := func(gidx []int) (v float64) {
		for i, x := range gidx {
			v = v*float64(d.NGlobal[i]) + float64(x)
		}
		return
	}
	idx := make([]int, d.NDims)
	gidx := make([]int, d.NDims)
	var walk func(axis int, interiorOnly bool, visit func())
	walk = func(axis int, interiorOnly bool, visit func()) {
		if axis == d.NDims {
			visit()
			return
		}
		lo, hi := 0, sd.Shape[axis]
		if interiorOnly {
			lo, hi = d.Halo, sd.Shape[axis]-d.Halo
		}
		for i := lo; i < hi; i++ {
			idx[axis] = i
			walk(axis+1, interiorOnly, visit)
		}
	}
	walk(0, true, func() {
		for i, v := range idx {
			gidx[i] = sd.Position[i] + v - d.Halo
		}
		u.Set(flat(gidx), idx...)
	})
	g.Sync(u)
	walk(0, false, func() {
		for i, v := range idx {
			n := d.NGlobal[i]
			gidx[i] = ((sd.Position[i]+v-d.Halo)%n + n) % n
		}
		if u.At(idx...) != flat(gidx) {
			bad++
		}
	})
	return
}

// verifyRoundTrip runs forward then backward through the grid's transform
// chain and returns the largest elementwise deviation.
func verifyRoundTrip(c *comm.Comm, g *grid.Grid) (dev float64) {
	sd := g.Subdomain(false)
	rng := rand.New(rand.NewSource(int64(c.Rank())))
	u := tensor.NewDense[complex128](sd.Shape...)
	for i := range u.Data() {
		u.Data()[i] = complex(rng.Float64()-0.5, 0)
	}
	g.SyncC(u)

	v := g.IFFT(g.FFT(u))
	for i, x := range u.Data() {
		if d := cmplx.Abs(x - v.Data()[i]); d > dev {
			dev = d
		}
	}
	return
}
