// Package services holds the business logic between the HTTP handlers and
// the persistence layer: the spreadsheet ingestion pipeline and the message
// inbox.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/logger"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/repositories"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/snapshot"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/spreadsheet"
)

// State is one step of the ingestion pipeline
type State string

const (
	StateIdle         State = "idle"
	StateUploading    State = "uploading"
	StatePersisting   State = "persisting"
	StateColdFetching State = "cold_fetching"
	StateDisplaying   State = "displaying"
)

// Ingestor orchestrates Parser -> Remote store -> Local snapshot cache for
// uploads, and Remote store -> Local snapshot cache on a cold start. It owns
// the pipeline state explicitly; presentation layers observe it through
// Subscribe or poll it through View.
type Ingestor struct {
	repo     repositories.Repository
	cache    *snapshot.Cache
	log      *logger.Logger
	expected []string

	mu        sync.Mutex
	state     State
	dataset   models.Dataset
	warnings  []string
	notice    string
	observers []func(State)
}

// NewIngestor returns an idle pipeline. expectedSheets names the sheets
// fetched from the remote store when no fresh local snapshot exists.
func NewIngestor(repo repositories.Repository, cache *snapshot.Cache, log *logger.Logger, expectedSheets []string) *Ingestor {
	return &Ingestor{
		repo:     repo,
		cache:    cache,
		log:      log,
		expected: expectedSheets,
		state:    StateIdle,
	}
}

// Subscribe registers an observer invoked on every state transition
func (in *Ingestor) Subscribe(fn func(State)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.observers = append(in.observers, fn)
}

// State returns the current pipeline state
func (in *Ingestor) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

func (in *Ingestor) setState(s State) {
	in.mu.Lock()
	in.state = s
	observers := make([]func(State), len(in.observers))
	copy(observers, in.observers)
	in.mu.Unlock()

	// Notify outside the lock so observers may call back into the pipeline
	for _, fn := range observers {
		fn(s)
	}
}

// View returns the current dataset in the JSON shape the admin UI renders
func (in *Ingestor) View() models.DatasetView {
	in.mu.Lock()
	defer in.mu.Unlock()

	view := models.DatasetView{
		State:        string(in.state),
		FileName:     in.dataset.FileName,
		Sheets:       in.dataset.SheetOrder,
		CurrentSheet: in.dataset.FirstSheet(),
		Data:         in.dataset.Sheets,
		Warnings:     in.warnings,
		Notice:       in.notice,
	}
	return view
}

// Upload runs the explicit-upload path: parse, persist remotely, cache
// locally, display. An explicit upload always wins over cache freshness: the
// snapshot is unconditionally overwritten. A remote write failure does not
// roll anything back; the locally parsed grid is still displayed and the
// failure is surfaced as a notice on the view.
func (in *Ingestor) Upload(ctx context.Context, filename string, data []byte) (models.DatasetView, error) {
	in.setState(StateUploading)

	parsed, err := spreadsheet.Parse(filename, data)
	if err != nil {
		// Parsing failed: the previous dataset, if any, stays on display
		in.restoreDisplayState()
		return models.DatasetView{}, err
	}

	in.setState(StatePersisting)

	var warnings []string
	var remoteErr error
	for _, sheetName := range parsed.Dataset.SheetOrder {
		written, err := in.repo.ReplaceSheet(ctx, sheetName, parsed.Promoted[sheetName])
		if err != nil {
			remoteErr = apperrors.Wrap(err, apperrors.ErrRemoteWrite)
			in.log.Error(remoteErr)
			break
		}
		if written == 0 {
			warnings = append(warnings, fmt.Sprintf("No valid data found in the sheet %s.", sheetName))
			in.log.Warnf("sheet %q of %q: every row filtered out, nothing persisted", sheetName, filename)
		}
	}

	notice := ""
	if remoteErr != nil {
		notice = "Failed to upload data to the remote store. The file is shown from the local copy only."
	} else {
		// Only a fully persisted dataset becomes the cached snapshot
		if err := in.cache.Save(filename, parsed.Dataset.SheetOrder, parsed.Promoted); err != nil {
			in.log.Errorf("failed to cache snapshot for %q: %v", filename, err)
		}
	}

	in.mu.Lock()
	in.dataset = parsed.Dataset
	in.warnings = warnings
	in.notice = notice
	in.mu.Unlock()
	in.setState(StateDisplaying)

	return in.View(), remoteErr
}

// Start runs the application-start path. A fresh local snapshot skips all
// remote I/O; otherwise the expected sheets are cold-fetched, cached and
// displayed. A remote read failure leaves the dataset empty so the UI shows
// the upload prompt; it is reported through the returned error, never fatal.
func (in *Ingestor) Start(ctx context.Context) error {
	snap, err := in.cache.Load()
	if err != nil {
		// A corrupted snapshot degrades to a cache miss
		in.log.Errorf("local snapshot unreadable, falling back to remote fetch: %v", err)
	}
	if snap != nil {
		in.mu.Lock()
		in.dataset = datasetFromRows(snap.FileName, snap.SheetOrder, snap.Data)
		in.notice = ""
		in.warnings = nil
		in.mu.Unlock()
		in.setState(StateDisplaying)
		in.log.Infof("loaded dataset %q from local snapshot", snap.FileName)
		return nil
	}

	in.setState(StateColdFetching)

	fetched, err := in.repo.FetchAllSheets(ctx, in.expected)
	if err != nil {
		readErr := apperrors.Wrap(err, apperrors.ErrRemoteRead)
		in.log.Error(readErr)
		in.mu.Lock()
		in.dataset = models.Dataset{}
		in.notice = "Failed to load data from the remote store."
		in.mu.Unlock()
		in.setState(StateIdle)
		return readErr
	}

	if err := in.cache.Save("", in.expected, fetched); err != nil {
		in.log.Errorf("failed to cache cold-fetched snapshot: %v", err)
	}

	in.mu.Lock()
	in.dataset = datasetFromRows("", in.expected, fetched)
	in.mu.Unlock()
	in.setState(StateDisplaying)
	in.log.Infof("loaded %d sheet(s) from the remote store", len(in.expected))
	return nil
}

// restoreDisplayState puts the pipeline back where it was before a failed
// upload: displaying the prior dataset, or idle if there is none
func (in *Ingestor) restoreDisplayState() {
	in.mu.Lock()
	hasData := len(in.dataset.SheetOrder) > 0
	in.mu.Unlock()
	if hasData {
		in.setState(StateDisplaying)
	} else {
		in.setState(StateIdle)
	}
}

// datasetFromRows reshapes header-promoted sheets into grid form, keeping
// the given sheet order
func datasetFromRows(fileName string, sheetOrder []string, data map[string]models.SheetRows) models.Dataset {
	ds := models.Dataset{
		FileName: fileName,
		Sheets:   make(map[string]models.Sheet, len(sheetOrder)),
	}
	for _, name := range sheetOrder {
		ds.SheetOrder = append(ds.SheetOrder, name)
		ds.Sheets[name] = data[name].Grid()
	}
	return ds
}
