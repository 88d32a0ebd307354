package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/motwatch/cmd/motctl/app"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	if err := app.NewMotctlCommand(ctx).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
