package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

func main() {
	godotenv.Load()
	flag.Parse()

	server, err := Setup()
	if err != nil {
		log.Fatalf("main start failed %v", err)
		return
	}

	server.Run()
}
