package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"yashubustudio/cropadvisor/advisor"
)

type uiState struct {
	service    *advisor.Service
	cfg        advisor.Config
	configPath string
	logger     zerolog.Logger

	session      advisor.SessionSlot
	explanations []advisor.Explanation

	w          fyne.Window
	entries    []*widget.Entry
	cards      *fyne.Container
	question   *widget.Entry
	answer     *widget.Label
	status     *widget.Label
	progress   *widget.ProgressBarInfinite
	statusBind binding.String
	log        *widget.Entry

	analyzeBtn *widget.Button
	askBtn     *widget.Button
	exportBtn  *widget.Button
	batchBtn   *widget.Button
}

func buildUI(a fyne.App, svc *advisor.Service, configPath string, logBind binding.String, logger zerolog.Logger) *uiState {
	u := &uiState{service: svc, cfg: svc.Config(), configPath: configPath, logger: logger}
	u.w = a.NewWindow("🌾 Smart Crop Advisory System")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("Ready")
	u.status = widget.NewLabelWithData(u.statusBind)
	u.progress = widget.NewProgressBarInfinite()
	u.progress.Stop()
	u.progress.Hide()

	u.log = widget.NewEntryWithData(logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("Log")
	u.log.Disable()

	left, right := widget.NewForm(), widget.NewForm()
	u.entries = make([]*widget.Entry, len(advisor.Fields))
	defaults := advisor.DefaultMeasurements().Values()
	for i, f := range advisor.Fields {
		field := f
		e := widget.NewEntry()
		e.SetText(field.Format(defaults[i]))
		e.Validator = func(s string) error {
			_, err := field.Parse(s)
			return err
		}
		u.entries[i] = e
		// N, P, K and pH in the left column
		switch field.Key {
		case "nitrogen", "phosphorus", "potassium", "ph":
			left.Append(field.Label, e)
		default:
			right.Append(field.Label, e)
		}
	}

	u.analyzeBtn = widget.NewButtonWithIcon("🌿 Analyze Suitable Crops", theme.ConfirmIcon(), func() { u.onAnalyze() })
	u.analyzeBtn.Importance = widget.HighImportance
	u.exportBtn = widget.NewButtonWithIcon("Export CSV", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.exportBtn.Disable()
	u.batchBtn = widget.NewButtonWithIcon("Batch file", theme.FolderOpenIcon(), func() { u.onBatch() })
	settingsBtn := widget.NewButtonWithIcon("Settings", theme.SettingsIcon(), func() { u.openSettings() })

	u.cards = container.NewVBox(widget.NewLabel("Enter the soil and climate readings, then analyze."))

	u.question = widget.NewEntry()
	u.question.SetPlaceHolder("Ask your question:")
	u.question.OnSubmitted = func(string) { u.onAsk() }
	u.askBtn = widget.NewButton("Ask AI", func() { u.onAsk() })
	u.askBtn.Disable()
	u.answer = widget.NewLabel("")
	u.answer.Wrapping = fyne.TextWrapWord

	inputs := container.NewVBox(
		widget.NewLabelWithStyle("Soil and climate", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWithColumns(2, left, right),
		container.NewGridWithColumns(4, u.analyzeBtn, u.exportBtn, u.batchBtn, settingsBtn),
		u.progress,
		u.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	leftPane := container.NewBorder(inputs, nil, nil, nil, u.log)

	followUp := container.NewVBox(
		widget.NewSeparator(),
		widget.NewLabelWithStyle("💬 Ask About These Crops", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, u.askBtn, u.question),
		u.answer,
	)
	rightPane := container.NewBorder(
		widget.NewLabelWithStyle("🏆 Top 3 Recommended Crops", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		followUp, nil, nil,
		container.NewVScroll(u.cards),
	)

	split := container.NewHSplit(leftPane, rightPane)
	split.Offset = 0.4
	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 780))
	return u
}

// readMeasurements parses the form. Values outside the range are clamped and
// written back so the form shows what was submitted.
func (u *uiState) readMeasurements() (advisor.Measurements, error) {
	vals := make([]float64, len(advisor.Fields))
	for i, f := range advisor.Fields {
		v, err := f.Parse(u.entries[i].Text)
		if err != nil {
			return advisor.Measurements{}, err
		}
		vals[i] = v
		if formatted := f.Format(v); formatted != strings.TrimSpace(u.entries[i].Text) {
			u.entries[i].SetText(formatted)
		}
	}
	return advisor.MeasurementsFromValues(vals)
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		if b {
			u.analyzeBtn.Disable()
			u.batchBtn.Disable()
			u.progress.Show()
			u.progress.Start()
			return
		}
		u.analyzeBtn.Enable()
		u.batchBtn.Enable()
		u.progress.Stop()
		u.progress.Hide()
	})
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) showError(err error) {
	fyne.Do(func() { dialog.ShowError(err, u.w) })
}

func (u *uiState) onAnalyze() {
	m, err := u.readMeasurements()
	if err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	u.setBusy(true)
	u.setStatus("Analyzing...")
	go func() {
		ctx := context.Background()
		sess, err := u.service.Recommend(ctx, m)
		if err != nil {
			u.setBusy(false)
			u.setStatus("Error")
			u.logger.Error().Err(err).Msg("recommend failed")
			u.showError(err)
			return
		}
		u.session.Store(sess)
		fyne.Do(func() {
			u.explanations = nil
			u.renderCards(sess, nil)
			u.answer.SetText("")
			u.askBtn.Enable()
			u.exportBtn.Enable()
		})

		u.setStatus("Generating explanation...")
		start := time.Now()
		exps := u.service.Explain(ctx, sess)
		u.setBusy(false)
		if u.session.Load() != sess {
			// a newer analysis replaced this one
			return
		}
		fyne.Do(func() {
			u.explanations = exps
			u.renderCards(sess, exps)
		})
		u.setStatus(fmt.Sprintf("Done (%.1fs)", time.Since(start).Seconds()))
	}()
}

// renderCards must run on the UI goroutine.
func (u *uiState) renderCards(sess *advisor.Session, exps []advisor.Explanation) {
	u.cards.RemoveAll()
	if sess.Empty() {
		u.cards.Add(widget.NewLabel("No crops returned by the model."))
		u.cards.Refresh()
		return
	}
	for i, r := range sess.Ranked {
		text := "Generating explanation..."
		if i < len(exps) {
			text = exps[i].Text
		}
		body := widget.NewLabel(text)
		body.Wrapping = fyne.TextWrapWord
		content := container.NewVBox()
		if path, ok := advisor.ImagePath(u.cfg.ImagesDir, r.Label); ok {
			img := canvas.NewImageFromFile(path)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(220, 150))
			content.Add(container.NewHBox(img))
		}
		content.Add(body)
		subtitle := fmt.Sprintf("probability %.1f%%", r.Probability*100)
		u.cards.Add(widget.NewCard(advisor.Title(r), subtitle, content))
	}
	u.cards.Refresh()
}

func (u *uiState) onAsk() {
	sess := u.session.Load()
	question := u.question.Text
	if sess.Empty() || strings.TrimSpace(question) == "" {
		return
	}
	u.askBtn.Disable()
	u.answer.SetText("Thinking...")
	go func() {
		ans, ok := u.service.Ask(context.Background(), sess, question)
		fyne.Do(func() {
			u.askBtn.Enable()
			if !ok {
				u.answer.SetText("")
				return
			}
			u.answer.SetText("🤖 AI Response\n\n" + ans.Text)
		})
	}()
}

func (u *uiState) onExport() {
	sess := u.session.Load()
	if sess.Empty() {
		dialog.ShowInformation("Export", "Nothing to export yet", u.w)
		return
	}
	results := []advisor.BatchResult{{
		Record:       advisor.MeasurementRecord{ID: sess.ID, Measurements: sess.Measurements},
		Ranked:       sess.Ranked,
		Explanations: u.explanations,
	}}
	u.saveResults(results, "recommendation.csv")
}

func (u *uiState) saveResults(results []advisor.BatchResult, name string) {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := advisor.WriteResultCSV(uc, results); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info().Int("rows", len(results)).Str("path", uc.URI().Path()).Msg("results exported")
	}, u.w)
	fd.SetFileName(name)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

// onBatch ranks every row of a CSV/TSV file and offers the results for saving.
func (u *uiState) onBatch() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		records, err := advisor.ParseMeasurementFile(path)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if len(records) == 0 {
			dialog.ShowInformation("Batch", "No rows found", u.w)
			return
		}
		u.setBusy(true)
		u.setStatus(fmt.Sprintf("Ranking %d rows...", len(records)))
		go func() {
			results := u.service.RecommendBatch(context.Background(), records, false)
			failed := advisor.Failed(results)
			u.setBusy(false)
			u.setStatus(fmt.Sprintf("Ranked %d rows (%d failed)", len(records), failed))
			fyne.Do(func() { u.saveResults(results, "batch_results.csv") })
		}()
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv"}))
	fd.Show()
}

func (u *uiState) openSettings() {
	cfg := u.cfg
	endpointEntry := widget.NewEntry()
	endpointEntry.SetText(cfg.Generation.Endpoint)
	modelEntry := widget.NewEntry()
	modelEntry.SetText(cfg.Generation.Model)
	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(strconv.Itoa(cfg.Generation.TimeoutSeconds))
	parallelCheck := widget.NewCheck("Generate explanations in parallel", nil)
	parallelCheck.SetChecked(cfg.ParallelExplanations)
	cacheCheck := widget.NewCheck("Reuse explanations for identical readings", nil)
	cacheCheck.SetChecked(cfg.CacheExplanations)
	imagesEntry := widget.NewEntry()
	imagesEntry.SetText(cfg.ImagesDir)

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "LLM endpoint", Widget: endpointEntry},
		{Text: "LLM model", Widget: modelEntry},
		{Text: "Timeout (s)", Widget: timeoutEntry},
		{Text: "Parallel", Widget: parallelCheck},
		{Text: "Cache", Widget: cacheCheck},
		{Text: "Images folder", Widget: imagesEntry},
	}}

	dialog.NewCustomConfirm("Settings", "OK", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		newCfg := cfg
		newCfg.ParallelExplanations = parallelCheck.Checked
		newCfg.CacheExplanations = cacheCheck.Checked
		newCfg.ImagesDir = strings.TrimSpace(imagesEntry.Text)
		if v, err := strconv.Atoi(strings.TrimSpace(timeoutEntry.Text)); err == nil {
			newCfg.Generation.TimeoutSeconds = v
		}
		generatorChanged := strings.TrimSpace(endpointEntry.Text) != cfg.Generation.Endpoint ||
			strings.TrimSpace(modelEntry.Text) != cfg.Generation.Model ||
			newCfg.Generation.TimeoutSeconds != cfg.Generation.TimeoutSeconds
		newCfg.Generation.Endpoint = strings.TrimSpace(endpointEntry.Text)
		newCfg.Generation.Model = strings.TrimSpace(modelEntry.Text)
		newCfg.ApplyDefaults()
		if err := newCfg.Validate(); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if err := advisor.SaveConfig(u.configPath, newCfg); err != nil {
			dialog.ShowError(fmt.Errorf("save settings: %w", err), u.w)
			return
		}
		if generatorChanged {
			u.service.SetGenerator(advisor.NewOllamaClientFromConfig(newCfg.Generation))
		}
		u.service.UpdateConfig(newCfg)
		u.cfg = newCfg
		u.logger.Info().Str("model", newCfg.Generation.Model).Bool("parallel", newCfg.ParallelExplanations).Msg("settings updated")
	}, u.w).Show()
}
