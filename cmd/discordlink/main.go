package main

import (
	"log"
	"os"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Printf("discordlink: %v", err)
		os.Exit(1)
	}
}
