package main

import (
	"flag"

	"k8s.io/klog/v2"

	"github.com/notargets/gospectral/cmd"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()
	cmd.Execute()
}
