package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/cli/config"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

func cmdValidate() *cli.Command {
	var tuningPath string
	var graphPath string

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate deployment artifacts (tuning file, knowledge base)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "tuning",
				Usage:       "Path to the pipeline tuning file (TOML)",
				Sources:     cli.EnvVars("CHIRON_TUNING"),
				Destination: &tuningPath,
			},
			&cli.StringFlag{
				Name:        "graph-path",
				Usage:       "Path to the knowledge base JSON file",
				Sources:     cli.EnvVars("CHIRON_GRAPH_PATH"),
				Destination: &graphPath,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if tuningPath == "" && graphPath == "" {
				return goerr.New("nothing to validate, specify --tuning and/or --graph-path")
			}

			if tuningPath != "" {
				tuning, err := config.LoadTuning(tuningPath)
				if err != nil {
					return goerr.Wrap(err, "tuning validation failed")
				}
				voiceCfg := tuning.ToVoiceConfig()
				if err := voiceCfg.Validate(); err != nil {
					return goerr.Wrap(err, "tuning produces an invalid capture config")
				}
				logger.Info("Tuning file is valid",
					"path", tuningPath,
					"frame_duration", voiceCfg.FrameDuration,
					"silence_threshold", voiceCfg.SilenceThreshold,
					"max_turn_duration", voiceCfg.MaxTurnDuration,
				)
			}

			if graphPath != "" {
				kg, err := graph.LoadFile(graphPath)
				if err != nil {
					return goerr.Wrap(err, "knowledge base validation failed")
				}
				stats := kg.Stats()
				logger.Info("Knowledge base is valid",
					"path", graphPath,
					"nodes", stats.TotalNodes,
					"relationships", stats.TotalRelationships,
				)
			}

			return nil
		},
	}
}
