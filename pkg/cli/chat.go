package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/cli/config"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/service/tutor"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgHiWhite)
	metaColor   = color.New(color.FgHiBlack)
	errorColor  = color.New(color.FgRed)
)

func cmdChat() *cli.Command {
	var tuningPath string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var graphCfg config.Graph

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "Path to the pipeline tuning file (TOML)",
			Sources:     cli.EnvVars("CHIRON_TUNING"),
			Destination: &tuningPath,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, graphCfg.Flags()...)

	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"c"},
		Usage:   "Interactive text chat session in the terminal",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			p, err := buildPipeline(ctx, tuningPath, &repoCfg, &geminiCfg, &graphCfg)
			if err != nil {
				return err
			}
			defer p.cleanup()
			uc := p.uc

			session, err := uc.Analytics.StartSession(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to start session")
			}

			fmt.Printf("Session %s started. Type your question, or \"exit\" to finish.\n", session.ID)
			fmt.Println(strings.Repeat("-", 50))

			reader := bufio.NewReader(os.Stdin)
			turns := 0

			for {
				promptColor.Print("\nYou> ")

				line, err := reader.ReadString('\n')
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				interaction, err := uc.Chat.HandleText(ctx, session.ID, line)
				if err != nil {
					errorColor.Printf("error: %v\n", err)
					continue
				}
				turns++

				answerColor.Println(interaction.Response)
				if topics := topicNames(p.kg, interaction.MatchedEntities); topics != "" {
					metaColor.Printf("  topics: %s\n", topics)
				}
				if interaction.Complexity != "" {
					metaColor.Printf("  level: %s\n", interaction.Complexity)
				}
				for _, followUp := range interaction.FollowUps {
					metaColor.Printf("  next: %s\n", followUp)
				}
			}

			if turns > 0 {
				printInsights(ctx, uc, session.ID)
				printSummary(ctx, p.tutor, uc, session.ID)
			}
			fmt.Println("Goodbye!")
			return nil
		},
	}
}

// topicNames resolves matched node IDs to display names, falling back to
// the raw ID when the node is gone
func topicNames(kg *graph.Graph, ids []types.NodeID) string {
	if len(ids) == 0 {
		return ""
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if kg != nil {
			if node, err := kg.Node(id); err == nil {
				names = append(names, node.Entity)
				continue
			}
		}
		names = append(names, id.String())
	}
	return strings.Join(names, ", ")
}

func printInsights(ctx context.Context, uc *usecase.UseCases, sessionID types.SessionID) {
	insights, err := uc.Analytics.Insights(ctx, sessionID)
	if err != nil {
		logging.Default().Warn("failed to build session insights", "error", err)
		return
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	promptColor.Println("Session insights")
	if len(insights.TopicsDiscussed) > 0 {
		fmt.Printf("  topics covered: %s\n", strings.Join(insights.TopicsDiscussed, ", "))
	}
	fmt.Printf("  duration: %.1f minutes\n", insights.DurationMinutes)
	fmt.Printf("  complexity trend: %s\n", insights.Trend)
	for _, rec := range insights.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
}

// printSummary asks the tutor for a free-text recap of the session. Skipped
// when Gemini is not configured.
func printSummary(ctx context.Context, tutorSvc tutor.Service, uc *usecase.UseCases, sessionID types.SessionID) {
	if tutorSvc == nil {
		return
	}

	session, err := uc.Analytics.Session(ctx, sessionID)
	if err != nil {
		logging.Default().Warn("failed to load session for summary", "error", err)
		return
	}
	summary, err := tutorSvc.Summarize(ctx, session)
	if err != nil {
		logging.Default().Warn("failed to summarize session", "error", err)
		return
	}

	fmt.Println()
	promptColor.Println("Session summary")
	answerColor.Println(summary)
}

// pipeline is the shared chat stack for terminal commands. tutor is nil
// when Gemini is not configured; cleanup closes the repository.
type pipeline struct {
	uc      *usecase.UseCases
	kg      *graph.Graph
	tutor   tutor.Service
	cleanup func()
}

func buildPipeline(ctx context.Context, tuningPath string, repoCfg *config.Repository, geminiCfg *config.Gemini, graphCfg *config.Graph) (*pipeline, error) {
	var ucOpts []usecase.Option
	if tuningPath != "" {
		tuning, err := config.LoadTuning(tuningPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load tuning file")
		}
		ucOpts = append(ucOpts, tuning.UseCaseOptions()...)
	}

	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	kg, err := graphCfg.Configure()
	if err != nil {
		cleanup()
		return nil, goerr.Wrap(err, "failed to load knowledge graph")
	}
	if kg != nil {
		ucOpts = append(ucOpts, usecase.WithGraph(kg))
	}

	var tutorSvc tutor.Service
	llmClient, err := geminiCfg.Configure(ctx)
	if err != nil {
		cleanup()
		return nil, goerr.Wrap(err, "failed to configure Gemini client")
	}
	if llmClient != nil {
		tutorSvc, err = tutor.New(llmClient)
		if err != nil {
			cleanup()
			return nil, goerr.Wrap(err, "failed to initialize tutor service")
		}
		ucOpts = append(ucOpts, usecase.WithGenerator(tutorSvc))
	} else {
		logging.Default().Warn("Gemini is not configured, answers come from the knowledge base only")
	}

	return &pipeline{
		uc:      usecase.New(repo, ucOpts...),
		kg:      kg,
		tutor:   tutorSvc,
		cleanup: cleanup,
	}, nil
}
