package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/motwatch/cmd/motwatch/app"
)

func main() {
	app.NewApp().Run()
}
