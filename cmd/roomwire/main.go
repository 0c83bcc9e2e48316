package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/roomwire-io/roomwire/cmd/roomwire/app"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	if err := app.NewRoomwireCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
