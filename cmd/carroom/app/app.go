package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gameon-rooms/carroom/cmd/carroom/app/options"
	"github.com/gameon-rooms/carroom/pkg/app"
	"github.com/gameon-rooms/carroom/pkg/log"
)

const (
	commandName = "carroom"
	commandDesc = `The carroom server hosts a Game On! room containing a remote
control car. Players connect through the game mediator over a websocket and
steer the car with slash commands; the room relays their commands to the car
as 50 ms actuator pulses and routes the car's telemetry back to them.`
)

func NewApp() *app.App {
	opts := options.NewRoomOptions()
	application := app.NewApp(
		commandName,
		"Launch the car room server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.RoomOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewRoomServer()
		if err != nil {
			return fmt.Errorf("failed to create room server: %w", err)
		}

		return server.Run(ctx)
	}
}
