package main

import (
	"log"

	"github.com/lmercier/bulletin-analyzer/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatal(err)
	}
}
