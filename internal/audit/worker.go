package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/logger"
)

// Action types accepted by the worker
const (
	ActionCreate = "create_audit"
	ActionAppend = "append_entry"
	ActionResult = "run_result"
)

// AuditAction represents operations sent to the audit channel
type AuditAction struct {
	Type  string      `json:"type"`
	RunID string      `json:"run_id"`
	Data  interface{} `json:"data"`

	// create_audit only
	Engine     string `json:"engine,omitempty"`
	OptionType string `json:"option_type,omitempty"`
	// run_result only
	Err string `json:"error,omitempty"`
}

// AuditHeader identifies one pricing run
type AuditHeader struct {
	RunID      string      `json:"run_id"`
	Engine     string      `json:"engine"`
	OptionType string      `json:"option_type"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time,omitempty"`
	Parameters interface{} `json:"parameters,omitempty"`
}

// AuditFile represents the complete audit file structure
type AuditFile struct {
	Header  AuditHeader              `json:"header"`
	Entries []map[string]interface{} `json:"entries"`
	Result  interface{}              `json:"result,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// Recorder writes one JSON file per pricing run. A single goroutine owns all
// file operations; callers never block on disk.
type Recorder struct {
	dir    string
	format string

	mu     sync.RWMutex
	closed bool
	ch     chan AuditAction
	done   chan struct{}
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// NewRecorder starts the worker writing into dir
func NewRecorder(dir, format string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	if format == "" {
		format = "{engine}-{type}-{timestamp}"
	}
	r := &Recorder{
		dir:    dir,
		format: format,
		ch:     make(chan AuditAction, 100),
		done:   make(chan struct{}),
	}
	go r.worker()
	return r, nil
}

// Begin opens the audit file of a run
func (r *Recorder) Begin(runID, engine, optionType string, params interface{}) error {
	return r.send(AuditAction{Type: ActionCreate, RunID: runID, Engine: engine, OptionType: optionType, Data: params})
}

// Append adds an entry, such as a progress snapshot, to an open run
func (r *Recorder) Append(runID string, data interface{}) error {
	return r.send(AuditAction{Type: ActionAppend, RunID: runID, Data: data})
}

// Finish records the outcome of a run and archives its file
func (r *Recorder) Finish(runID string, result interface{}, runErr error) error {
	a := AuditAction{Type: ActionResult, RunID: runID, Data: result}
	if runErr != nil {
		a.Err = runErr.Error()
	}
	return r.send(a)
}

// Close drains pending actions and stops the worker
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) send(a AuditAction) error {
	if a.RunID == "" {
		return fmt.Errorf("audit action %s without run id", a.Type)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("audit recorder closed")
	}
	select {
	case r.ch <- a:
		return nil
	default:
		return fmt.Errorf("audit channel full")
	}
}

func (r *Recorder) partialPath(runID string) string {
	return filepath.Join(r.dir, runID+".partial.json")
}

// worker processes all audit operations in a single goroutine - OWNS ALL FILE OPERATIONS
func (r *Recorder) worker() {
	defer close(r.done)
	open := make(map[string]*AuditFile)

	for action := range r.ch {
		switch action.Type {
		case ActionCreate:
			f := &AuditFile{
				Header: AuditHeader{
					RunID:      action.RunID,
					Engine:     action.Engine,
					OptionType: action.OptionType,
					StartTime:  time.Now(),
					Parameters: action.Data,
				},
				Entries: []map[string]interface{}{},
			}
			open[action.RunID] = f
			if err := writeJSON(r.partialPath(action.RunID), f); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to write audit file: %v", err)
				continue
			}
			logger.Debug.Printf("📝 AUDIT: Created audit for %s run %s", action.Engine, action.RunID)

		case ActionAppend:
			f, ok := open[action.RunID]
			if !ok {
				logger.Warn.Printf("⚠️ AUDIT: FAILED - No open audit for run %s", action.RunID)
				continue
			}
			f.Entries = append(f.Entries, map[string]interface{}{
				"timestamp": time.Now().Format(time.RFC3339Nano),
				"data":      action.Data,
			})
			if err := writeJSON(r.partialPath(action.RunID), f); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to write audit file: %v", err)
			}

		case ActionResult:
			f, ok := open[action.RunID]
			if !ok {
				logger.Warn.Printf("⚠️ AUDIT: FAILED - No open audit for run %s", action.RunID)
				continue
			}
			delete(open, action.RunID)
			f.Header.EndTime = time.Now()
			f.Result = action.Data
			f.Error = action.Err

			timestamp := f.Header.StartTime.Format("2006-01-02_15-04-05")
			baseName := config.FormatAuditFilename(r.format, f.Header.Engine, f.Header.OptionType, timestamp)
			name := filepath.Join(r.dir, fmt.Sprintf("%s_%s.json", baseName, shortID(action.RunID)))
			if err := writeJSON(name, f); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to write %s: %v", name, err)
				continue
			}
			os.Remove(r.partialPath(action.RunID))
			logger.Verbose.Printf("📁 AUDIT: Archived run %s to %s", action.RunID, name)

		default:
			logger.Warn.Printf("⚠️ AUDIT: INVALID ACTION TYPE '%s'", action.Type)
		}
	}

	// runs never finished stay as partial files
	for id := range open {
		logger.Warn.Printf("⚠️ AUDIT: Run %s closed without a result", id)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
