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
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/notargets/gospectral/backend"
	"github.com/notargets/gospectral/comm"
	"github.com/notargets/gospectral/decomp"
	"github.com/notargets/gospectral/tensor"
)

// BenchCmd represents the bench command
var BenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the distributed transform chain",
	Long: `
Runs repeated forward/backward spectral transforms and halo exchanges on a
decomposed grid and reports wall-clock timings per operation,

gospectral bench -r 4 -s 128 `,
	Run: func(cmd *cobra.Command, args []string) {
		b := &BenchModel{}
		b.Ranks, _ = cmd.Flags().GetInt("ranks")
		b.Size, _ = cmd.Flags().GetInt("size")
		b.Dims, _ = cmd.Flags().GetInt("dims")
		b.Halo, _ = cmd.Flags().GetInt("halo")
		b.Iterations, _ = cmd.Flags().GetInt("iterations")
		b.Backend, _ = cmd.Flags().GetString("backend")
		b.Profile, _ = cmd.Flags().GetBool("profile")
		RunBench(b)
	},
}

func init() {
	rootCmd.AddCommand(BenchCmd)
	BenchCmd.Flags().IntP("ranks", "r", 4, "number of ranks to decompose over")
	BenchCmd.Flags().IntP("size", "s", 64, "grid points per axis")
	BenchCmd.Flags().IntP("dims", "d", 3, "number of grid dimensions")
	BenchCmd.Flags().Int("halo", 2, "halo width of the physical decomposition")
	BenchCmd.Flags().IntP("iterations", "i", 10, "transform round trips to time")
	BenchCmd.Flags().String("backend", "", "compute backend, e.g. serial or occa:{\"mode\": \"Serial\"}")
	BenchCmd.Flags().Bool("profile", false, "write a CPU profile for the run")
}

type BenchModel struct {
	Ranks      int
	Size       int
	Dims       int
	Halo       int
	Iterations int
	Backend    string
	Profile    bool
}

func RunBench(b *BenchModel) {
	if b.Profile {
		defer profile.Start(profile.CPUProfile).Stop()
	}
	nGlobal := make([]int, b.Dims)
	for i := range nGlobal {
		nGlobal[i] = b.Size
	}
	fmt.Printf("bench: grid %v over %d ranks, halo %d, %d iterations\n",
		nGlobal, b.Ranks, b.Halo, b.Iterations)

	var (
		mu        sync.Mutex
		syncTime  time.Duration
		fftTime   time.Duration
		ifftTime  time.Duration
		setupTime time.Duration
	)
	w := comm.NewWorld(b.Ranks)
	w.Run(func(c *comm.Comm) {
		start := time.Now()
		be, err := backend.New(b.Backend)
		if err != nil {
			klog.Fatalf("backend: %v", err)
		}
		d, err := decomp.New(c, nGlobal, b.Halo, []int{0}, be)
		if err != nil {
			klog.Fatalf("decomposition: %v", err)
		}
		pfft, err := decomp.NewParallelFFT(d, nil, 0)
		if err != nil {
			klog.Fatalf("transform chain: %v", err)
		}
		setup := time.Since(start)

		rng := rand.New(rand.NewSource(int64(c.Rank())))
		u := tensor.NewDense[complex128](d.MySubdomain.Shape...)
		for i := range u.Data() {
			u.Data()[i] = complex(rng.Float64(), 0)
		}

		var tSync, tFFT, tIFFT time.Duration
		for it := 0; it < b.Iterations; it++ {
			t0 := time.Now()
			decomp.Sync(d, u)
			tSync += time.Since(t0)

			t0 = time.Now()
			uHat := pfft.Forward(u)
			tFFT += time.Since(t0)

			t0 = time.Now()
			u = pfft.Backward(uHat)
			tIFFT += time.Since(t0)
		}

		mu.Lock()
		setupTime += setup
		syncTime += tSync
		fftTime += tFFT
		ifftTime += tIFFT
		mu.Unlock()
	})

	perOp := func(total time.Duration) time.Duration {
		return total / time.Duration(b.Ranks*b.Iterations)
	}
	fmt.Printf("setup:    %v per rank\n", setupTime/time.Duration(b.Ranks))
	fmt.Printf("sync:     %v per call\n", perOp(syncTime))
	fmt.Printf("forward:  %v per call\n", perOp(fftTime))
	fmt.Printf("backward: %v per call\n", perOp(ifftTime))
}
