package main

import (
	"log"

	"github.com/IamSpotted/ITSF-Agent/app"
)

func main() {
	if err := app.Bootstrap(); err != nil {
		log.Fatalf("failed to start agent: %v", err)
	}
}
