package main

import (
	"flag"

	"github.com/danmuck/bglink/internal/config"
	"github.com/danmuck/bglink/internal/observability"
)

const defaultPath = "cmd/bgtutorial/config.toml"

func main() {
	kind := flag.String("kind", "tutorial", "config kind: tutorial")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to cmd/bgtutorial/config.toml)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()
	log := observability.InitLogger("configgen")

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		if *kind != "tutorial" {
			log.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
		if _, err := config.LoadTutorialConfig(path); err != nil {
			log.Fatal().Err(err).Msg("validation failed")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("config valid")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
