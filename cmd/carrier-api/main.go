package main

import (
	"context"
	"errors"
	"log/slog"
)

func main() {
	app := mustBootstrapCarrierAPI()
	defer app.Close()

	slog.Info("carrier-api starting",
		"grpc_addr", app.opts.grpcAddr,
		"http_addr", app.opts.httpAddr,
		"topic", app.opts.topic,
	)
	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
