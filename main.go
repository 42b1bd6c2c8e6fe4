package main

import (
	"os"

	"treesearch/cmd"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("treesearch failed")
		os.Exit(1)
	}
}
