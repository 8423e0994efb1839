package main

import (
	"media-service/app"
	"media-service/pkg/observability"
)

func main() {
	observability.StartProfiling("media-service")
	app.Run()
}
