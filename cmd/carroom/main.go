package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/gameon-rooms/carroom/cmd/carroom/app"
)

func main() {
	app.NewApp().Run()
}
