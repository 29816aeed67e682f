package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/cli/config"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

func cmdAsk() *cli.Command {
	var tuningPath string
	var audioOut string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var graphCfg config.Graph
	var synthCfg config.Synthesis

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "Path to the pipeline tuning file (TOML)",
			Sources:     cli.EnvVars("CHIRON_TUNING"),
			Destination: &tuningPath,
		},
		&cli.StringFlag{
			Name:        "audio-out",
			Usage:       "Write the synthesized answer to this file (requires tts-api-key)",
			Destination: &audioOut,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, graphCfg.Flags()...)
	flags = append(flags, synthCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question and print the answer",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question argument is required")
			}

			p, err := buildPipeline(ctx, tuningPath, &repoCfg, &geminiCfg, &graphCfg)
			if err != nil {
				return err
			}
			defer p.cleanup()

			session, err := p.uc.Analytics.StartSession(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to start session")
			}

			interaction, err := p.uc.Chat.HandleText(ctx, session.ID, question)
			if err != nil {
				return goerr.Wrap(err, "failed to answer question")
			}

			answerColor.Println(interaction.Response)
			if topics := topicNames(p.kg, interaction.MatchedEntities); topics != "" {
				metaColor.Printf("  topics: %s\n", topics)
			}
			for _, followUp := range interaction.FollowUps {
				metaColor.Printf("  next: %s\n", followUp)
			}

			if audioOut == "" {
				return nil
			}

			synth, err := synthCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure speech synthesis")
			}
			if synth == nil {
				return goerr.New("tts-api-key is required for --audio-out")
			}

			synthesis, err := synth.Synthesize(ctx, interaction.Response)
			if err != nil {
				return goerr.Wrap(err, "failed to synthesize answer")
			}
			if err := os.WriteFile(audioOut, synthesis.Audio, 0600); err != nil {
				return goerr.Wrap(err, "failed to write audio file", goerr.V("path", audioOut))
			}
			logging.Default().Info("Wrote synthesized answer",
				"path", audioOut,
				"bytes", len(synthesis.Audio),
				"format", synthesis.Format,
			)
			return nil
		},
	}
}
