package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yashubustudio/cropadvisor/advisor"
	"yashubustudio/cropadvisor/internal/logging"
)

var version = "dev"

// deps builds the model and LLM backends. Tests replace them with fakes.
type deps struct {
	newClassifier func(advisor.ModelConfig) (advisor.Classifier, error)
	newGenerator  func(advisor.GenerationConfig) advisor.Generator
}

func defaultDeps() deps {
	return deps{
		newClassifier: func(cfg advisor.ModelConfig) (advisor.Classifier, error) {
			return advisor.NewOrtClassifier(cfg)
		},
		newGenerator: func(cfg advisor.GenerationConfig) advisor.Generator {
			return advisor.NewOllamaClientFromConfig(cfg)
		},
	}
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
	deps       deps
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(defaultDeps())
}

func newRootCommandWith(d deps) *cobra.Command {
	opts := &globalOptions{deps: d}
	cmd := &cobra.Command{
		Use:   "cropadvisor",
		Short: "Smart crop advisory from soil and climate readings",
		Long: `cropadvisor ranks the three crops best suited to a set of soil and
climate readings and asks a local Ollama model to explain each choice.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newRecommendCommand(opts))
	cmd.AddCommand(newBatchCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// loadConfig reads the configuration and sets up logging on the command's
// stderr.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (advisor.Config, zerolog.Logger, error) {
	cfg, err := advisor.LoadConfig(o.configPath)
	if err != nil {
		return advisor.Config{}, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if o.debug {
		level = "debug"
	}
	logger := logging.SetupTo(cmd.ErrOrStderr(), level)
	return cfg, logger, nil
}

// newService loads the model and connects the generator. The caller closes
// the returned service.
func (o *globalOptions) newService(cmd *cobra.Command, rec advisor.Recorder) (*advisor.Service, advisor.Config, zerolog.Logger, error) {
	cfg, logger, err := o.loadConfig(cmd)
	if err != nil {
		return nil, cfg, logger, err
	}
	classifier, err := o.deps.newClassifier(cfg.Model)
	if err != nil {
		return nil, cfg, logger, err
	}
	svc, err := advisor.NewService(classifier, o.deps.newGenerator(cfg.Generation), cfg, logger, rec)
	if err != nil {
		classifier.Close()
		return nil, cfg, logger, fmt.Errorf("init service: %w", err)
	}
	logger.Debug().Int("labels", len(svc.Labels())).Str("model", cfg.Model.ModelPath).Msg("crop model loaded")
	return svc, cfg, logger, nil
}
