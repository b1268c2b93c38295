package main

import (
	"log"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatal(err)
	}

	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
