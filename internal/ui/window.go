package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/config"
	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
	"github.com/Gherucu/gloload/internal/platform"
	"github.com/Gherucu/gloload/internal/thumbnail"
	"github.com/Gherucu/gloload/internal/workflow"
)

// Mode selects the window variant
type Mode int

const (
	// ModeSingle downloads one video and analyzes it
	ModeSingle Mode = iota
	// ModePlaylist downloads a whole playlist without analysis
	ModePlaylist
)

// MainWindow is the download form
type MainWindow struct {
	window fyne.Window
	cfg    *config.Config
	coord  *workflow.Coordinator
	state  *workflow.State
	mode   Mode

	ctx       context.Context
	debouncer *Debouncer
	urlValid  bool
	shownFile string
	thumbSeq  int

	urlEntry    *widget.Entry
	folderLabel *widget.Label
	thumbnail   *canvas.Image
	downloadBtn *widget.Button
	cancelBtn   *widget.Button
	revealBtn   *widget.Button
	progress    *widget.ProgressBar
	bpmLabel    *widget.Label
	keyLabel    *widget.Label
	logLabel    *widget.Label
	logScroll   *container.Scroll

	logger zerolog.Logger
}

// NewMainWindow builds the form on a new window of app
func NewMainWindow(ctx context.Context, app fyne.App, cfg *config.Config, coord *workflow.Coordinator, mode Mode) *MainWindow {
	title := TitleSingle
	if mode == ModePlaylist {
		title = TitlePlaylist
	}

	w := &MainWindow{
		window:    app.NewWindow(title),
		cfg:       cfg,
		coord:     coord,
		state:     workflow.NewState(),
		mode:      mode,
		ctx:       ctx,
		debouncer: NewDebouncer(cfg.Debounce),
		logger:    logging.For("ui"),
	}

	if icon, err := AppIcon(w.placeholderOptions()); err == nil {
		w.window.SetIcon(icon)
	}

	w.setupUI()
	w.createMenu()
	w.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
	w.render()
	return w
}

// Window returns the underlying Fyne window
func (w *MainWindow) Window() fyne.Window {
	return w.window
}

// ShowAndRun starts the event dispatcher and runs the app main loop
func (w *MainWindow) ShowAndRun() {
	go w.dispatch()
	w.window.SetOnClosed(func() {
		w.debouncer.Stop()
		_ = w.coord.CancelDownload()
	})
	w.window.ShowAndRun()
}

func (w *MainWindow) placeholderOptions() thumbnail.PlaceholderOptions {
	return thumbnail.PlaceholderOptions{
		Text:     w.cfg.PlaceholderText,
		Width:    w.cfg.ThumbnailWidth,
		Height:   w.cfg.ThumbnailHeight,
		FontPath: w.cfg.FontPath,
		FontSize: w.cfg.FontSize,
	}
}

// setupUI creates and arranges all widgets
func (w *MainWindow) setupUI() {
	w.urlEntry = widget.NewEntry()
	w.urlEntry.SetPlaceHolder(PlaceholderURL)
	if w.mode == ModePlaylist {
		w.urlEntry.SetPlaceHolder(PlaceholderPlaylist)
	}
	w.urlEntry.OnChanged = w.onURLChanged
	w.urlEntry.OnSubmitted = func(string) { w.onDownloadClick() }

	w.folderLabel = widget.NewLabel(LabelOutputFolder + w.cfg.OutputDir)
	w.folderLabel.Truncation = fyne.TextTruncateEllipsis
	chooseBtn := widget.NewButton(ButtonChooseFolder, w.onChooseFolder)

	w.downloadBtn = widget.NewButton(ButtonDownload, w.onDownloadClick)
	w.downloadBtn.Importance = widget.HighImportance
	w.cancelBtn = widget.NewButton(ButtonCancel, w.onCancelClick)
	w.revealBtn = widget.NewButton(ButtonReveal, w.onRevealClick)

	w.progress = widget.NewProgressBar()
	w.logLabel = widget.NewLabel("")
	w.logLabel.Wrapping = fyne.TextWrapWord
	w.logScroll = container.NewVScroll(w.logLabel)
	w.logScroll.SetMinSize(fyne.NewSize(0, LogMinHeight))

	top := container.NewVBox(
		widget.NewLabel(LabelURL),
		w.urlEntry,
		container.NewBorder(nil, nil, nil, chooseBtn, w.folderLabel),
	)

	if w.mode == ModeSingle {
		w.thumbnail = canvas.NewImageFromImage(thumbnail.RenderPlaceholder(w.placeholderOptions()))
		w.thumbnail.FillMode = canvas.ImageFillContain
		w.thumbnail.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))

		w.bpmLabel = widget.NewLabel("")
		w.keyLabel = widget.NewLabel("")

		top.Add(container.NewCenter(w.thumbnail))
		top.Add(container.NewGridWithColumns(3, w.downloadBtn, w.cancelBtn, w.revealBtn))
		top.Add(w.progress)
		top.Add(container.NewGridWithColumns(2, w.bpmLabel, w.keyLabel))
	} else {
		top.Add(container.NewGridWithColumns(3, w.downloadBtn, w.cancelBtn, w.revealBtn))
		top.Add(w.progress)
	}

	w.window.SetContent(container.NewBorder(top, nil, nil, nil, w.logScroll))
}

// createMenu creates the application menu
func (w *MainWindow) createMenu() {
	items := []*fyne.MenuItem{
		fyne.NewMenuItem(MenuChooseFolder, w.onChooseFolder),
		fyne.NewMenuItem(MenuOpenFile, w.onOpenFile),
		fyne.NewMenuItem(MenuSettings, w.onShowSettings),
	}
	if w.mode == ModeSingle {
		items = append(items, fyne.NewMenuItem(MenuAnalyzeFile, w.onAnalyzeFile))
	}
	w.window.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu(MenuFile, items...)))
}

// dispatch applies coordinator events on the UI goroutine
func (w *MainWindow) dispatch() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev := <-w.coord.Events():
			w.logger.Debug().Str("op", ev.Operation()).Msg(model.Describe(ev))
			fyne.Do(func() {
				w.state.Apply(ev)
				w.render()
			})
		}
	}
}

// render copies the state into the widgets. It must run on the UI goroutine.
func (w *MainWindow) render() {
	w.progress.SetValue(float64(w.state.Percent) / 100)

	w.logLabel.SetText(strings.Join(w.state.Log, "\n"))
	w.logScroll.ScrollToBottom()

	if w.mode == ModeSingle {
		w.bpmLabel.SetText(w.state.BPMText())
		w.keyLabel.SetText(w.state.KeyText())
		w.showThumbnail(w.state.Thumbnail)
	}

	w.refreshControls()
}

// refreshControls enables buttons according to the URL and workflow state
func (w *MainWindow) refreshControls() {
	if w.urlValid && w.state.CanDownload() {
		w.downloadBtn.Enable()
	} else {
		w.downloadBtn.Disable()
	}

	if w.state.Status == model.StatusDownloading {
		w.cancelBtn.Enable()
	} else {
		w.cancelBtn.Disable()
	}

	if w.state.File != "" && w.state.Status.IsFinished() {
		w.revealBtn.Enable()
	} else {
		w.revealBtn.Disable()
	}
}

// showThumbnail loads path into the preview when it changed
func (w *MainWindow) showThumbnail(path string) {
	if path == "" || path == w.shownFile {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("cannot load thumbnail")
		return
	}
	w.shownFile = path
	w.thumbSeq++
	// A fresh resource name avoids Fyne's image cache serving the old file.
	w.thumbnail.Image = nil
	w.thumbnail.Resource = fyne.NewStaticResource(fmt.Sprintf("thumbnail-%d", w.thumbSeq), data)
	w.thumbnail.Refresh()
}

// onURLChanged revalidates the URL and schedules the thumbnail probe
func (w *MainWindow) onURLChanged(text string) {
	url := platform.CleanURL(text)

	if w.mode == ModePlaylist {
		w.urlValid = platform.IsPlaylistURL(url)
		w.refreshControls()
		return
	}

	w.urlValid = platform.IsVideoURL(url)
	w.refreshControls()
	if !w.urlValid {
		w.debouncer.Stop()
		return
	}

	// The callback runs on a timer goroutine; it must not read w.cfg.
	dir := w.cfg.OutputDir
	w.debouncer.Trigger(func() {
		id := ThumbnailIDPrefix + uuid.NewString()
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			w.logger.Warn().Err(err).Msg("cannot create output folder")
		}
		w.coord.ResolveThumbnail(w.ctx, id, url, dir)
	})
}

// onDownloadClick starts the download for the entered URL
func (w *MainWindow) onDownloadClick() {
	url := platform.CleanURL(w.urlEntry.Text)
	if !w.urlValid {
		msg := MsgInvalidVideoURL
		if w.mode == ModePlaylist {
			msg = MsgNotPlaylistURL
		}
		w.state.Apply(model.Notice{Text: msg})
		w.render()
		return
	}

	if err := platform.CreateDirectoryIfNotExists(w.cfg.OutputDir); err != nil {
		dialog.ShowError(err, w.window)
		return
	}

	req := model.DownloadRequest{
		URL:       url,
		OutputDir: w.cfg.OutputDir,
		Format:    model.FormatWAV,
		Playlist:  w.mode == ModePlaylist,
	}
	if req.Playlist {
		req.Format = w.cfg.Format
	}

	if _, err := w.coord.StartDownload(w.ctx, req); err != nil {
		w.logger.Error().Err(err).Str("url", url).Msg("download not started")
		if model.KindOf(err) == model.KindBusy {
			w.state.Apply(model.Notice{Text: err.Error()})
			w.render()
			return
		}
		dialog.ShowError(err, w.window)
		return
	}
	w.downloadBtn.Disable()
}

func (w *MainWindow) onCancelClick() {
	if err := w.coord.CancelDownload(); err != nil {
		w.logger.Debug().Err(err).Msg("cancel ignored")
	}
}

func (w *MainWindow) onOpenFile() {
	if w.state.File == "" {
		return
	}
	if err := platform.OpenFileWithDefaultApp(w.state.File); err != nil {
		dialog.ShowError(err, w.window)
	}
}

func (w *MainWindow) onRevealClick() {
	if w.state.File == "" {
		return
	}
	if err := platform.RevealFile(w.state.File); err != nil {
		dialog.ShowError(err, w.window)
	}
}

// onChooseFolder lets the user pick the output folder
func (w *MainWindow) onChooseFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		w.setOutputDir(uri.Path())
	}, w.window)
}

func (w *MainWindow) setOutputDir(dir string) {
	w.cfg.SetOutputDir(dir)
	w.folderLabel.SetText(LabelOutputFolder + w.cfg.OutputDir)
}

// onAnalyzeFile analyzes a WAV file picked by the user
func (w *MainWindow) onAnalyzeFile() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if _, err := w.coord.Analyze(w.ctx, AnalysisIDPrefix+uuid.NewString(), path); err != nil {
			dialog.ShowError(err, w.window)
		}
	}, w.window)
}

func (w *MainWindow) onShowSettings() {
	NewSettingsDialog(w.cfg, w.window, w.mode == ModePlaylist, func() {
		w.debouncer.SetDelay(w.cfg.Debounce)
		w.folderLabel.SetText(LabelOutputFolder + w.cfg.OutputDir)
	}).Show()
}

// Run opens the window for mode and blocks until it is closed
func Run(ctx context.Context, app fyne.App, cfg *config.Config, coord *workflow.Coordinator, mode Mode) {
	app.Settings().SetTheme(NewAppTheme())
	NewMainWindow(ctx, app, cfg, coord, mode).ShowAndRun()
}
