package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.Auditor = (*FileAuditor)(nil)

// FileAuditor is an auditor that appends operator actions to a file, one JSON document per line.
type FileAuditor struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *json.Encoder
}

func NewFileAuditor(filePath string) (*FileAuditor, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	return &FileAuditor{
		path:    filePath,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileAuditor) Log(action core.OperatorAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(action); err != nil {
		return fmt.Errorf("writing audit log entry: %w", err)
	}
	return nil
}

func (f *FileAuditor) GetRecent(limit int) ([]core.OperatorAction, error) {
	return f.Find(func(core.OperatorAction) bool { return true }, limit)
}

// Find reads the file back and returns the last limit matching actions, oldest first.
func (f *FileAuditor) Find(filter func(action core.OperatorAction) bool, limit int) ([]core.OperatorAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	var matches []core.OperatorAction
	dec := json.NewDecoder(file)
	for {
		var action core.OperatorAction
		if err := dec.Decode(&action); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading audit log file: %w", err)
		}
		if filter(action) {
			matches = append(matches, action)
		}
	}
	return lastN(matches, limit), nil
}

func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
