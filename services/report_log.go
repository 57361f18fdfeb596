package services

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"chat-relay/domain"
)

// ReportLog appends user reports to a dedicated file. Writes are
// buffered; Flush is called periodically from main and once on
// shutdown.
type ReportLog struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func NewReportLog(path string) (*ReportLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &ReportLog{file: file, writer: bufio.NewWriter(file)}, nil
}

func (r *ReportLog) Write(reporter domain.UserID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.writer, "%s report from %s: %s\n",
		time.Now().UTC().Format(time.RFC3339), reporter, text)
	return err
}

func (r *ReportLog) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Flush()
}

func (r *ReportLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writer.Flush(); err != nil {
		return err
	}
	return r.file.Close()
}
