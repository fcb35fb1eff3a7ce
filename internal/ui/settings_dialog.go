package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/Gherucu/gloload/internal/config"
	"github.com/Gherucu/gloload/internal/model"
)

// SettingsDialog edits the session configuration. Changes last until the
// application exits.
type SettingsDialog struct {
	cfg      *config.Config
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	playlist bool
	onApply  func()

	// UI components
	outputDirEntry *widget.Entry
	formatSelect   *widget.Select
	debounceEntry  *widget.Entry
}

// NewSettingsDialog creates a new settings dialog. onApply runs after the
// configuration has been updated.
func NewSettingsDialog(cfg *config.Config, window fyne.Window, playlist bool, onApply func()) *SettingsDialog {
	sd := &SettingsDialog{
		cfg:      cfg,
		window:   window,
		playlist: playlist,
		onApply:  onApply,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

// createUI creates the settings dialog UI
func (sd *SettingsDialog) createUI() {
	sd.outputDirEntry = widget.NewEntry()
	sd.outputDirEntry.SetPlaceHolder("Output folder path")

	browseDirBtn := widget.NewButton("Browse", sd.onBrowseDirectory)
	outputDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.outputDirEntry)

	formatOptions := make([]string, 0, len(model.SupportedFormats))
	for _, f := range model.SupportedFormats {
		formatOptions = append(formatOptions, string(f))
	}
	sd.formatSelect = widget.NewSelect(formatOptions, nil)

	sd.debounceEntry = widget.NewEntry()
	sd.debounceEntry.SetPlaceHolder("1s")

	form := container.NewVBox(
		widget.NewLabel("Output Folder:"),
		outputDirRow,
	)
	if sd.playlist {
		form.Add(widget.NewLabel("Audio Format:"))
		form.Add(sd.formatSelect)
	} else {
		form.Add(widget.NewLabel("URL Debounce:"))
		form.Add(sd.debounceEntry)
	}

	sd.dialog = dialog.NewCustomConfirm(
		"Settings",
		"Apply",
		"Cancel",
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(420, 300))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.outputDirEntry.SetText(sd.cfg.OutputDir)
	sd.formatSelect.SetSelected(string(sd.cfg.Format))
	sd.debounceEntry.SetText(sd.cfg.Debounce.String())
}

// onBrowseDirectory handles directory browsing
func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.outputDirEntry.SetText(uri.Path())
	}, sd.window)
}

// onSave copies the form into the configuration
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.apply()
}

func (sd *SettingsDialog) apply() {
	sd.cfg.SetOutputDir(sd.outputDirEntry.Text)

	if sd.formatSelect.Selected != "" {
		if f, err := model.ParseAudioFormat(sd.formatSelect.Selected); err == nil {
			sd.cfg.Format = f
		}
	}

	// An unparseable duration keeps the previous value.
	if d, err := time.ParseDuration(sd.debounceEntry.Text); err == nil {
		sd.cfg.SetDebounce(d)
	}

	if sd.onApply != nil {
		sd.onApply()
	}
}
