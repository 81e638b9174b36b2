package app

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/cropadvisor/advisor"
	"yashubustudio/cropadvisor/internal/logging"
)

const fyneAppID = "studio.yashubu.cropadvisor"

// Run loads the configuration and the crop model, then starts the desktop UI.
// A model that cannot be loaded is reported in an error window.
func Run(configPath string) error {
	a := fyneapp.NewWithID(fyneAppID)

	logBind := binding.NewString()
	capture := logging.NewLineCapture(logBind, 300)

	cfg, err := advisor.LoadConfig(configPath)
	if err != nil {
		logging.Setup("info", capture)
		showFatalError(a, fmt.Errorf("load settings: %w", err))
		return err
	}
	logger := logging.Setup(cfg.LogLevel, capture)

	classifier, err := advisor.NewOrtClassifier(cfg.Model)
	if err != nil {
		logger.Error().Err(err).Str("model", cfg.Model.ModelPath).Msg("crop model unavailable")
		showFatalError(a, err)
		return err
	}

	ollama := advisor.NewOllamaClientFromConfig(cfg.Generation)
	svc, err := advisor.NewService(classifier, ollama, cfg, logger, nil)
	if err != nil {
		classifier.Close()
		showFatalError(a, err)
		return err
	}
	defer svc.Close()
	logger.Info().Int("labels", len(svc.Labels())).Str("model", cfg.Model.ModelPath).Msg("crop model loaded")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ollama.Check(ctx); err != nil {
			logger.Warn().Err(err).Str("endpoint", cfg.Generation.Endpoint).Msg("LLM check failed; explanations will show the fallback text")
		}
	}()

	u := buildUI(a, svc, configPath, logBind, logger)
	u.w.ShowAndRun()
	return nil
}

func showFatalError(a fyne.App, err error) {
	w := a.NewWindow("Smart Crop Advisory System")
	label := widget.NewLabel(err.Error())
	label.Wrapping = fyne.TextWrapWord
	w.SetContent(label)
	w.Resize(fyne.NewSize(640, 240))
	dialog.ShowError(err, w)
	w.ShowAndRun()
}
