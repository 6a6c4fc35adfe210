package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("trivia exited")
		os.Exit(1)
	}
}
