// Package filesource serves exported log files in place of a server: it reads
// NDJSON or plain text files, optionally follows them, and answers queries,
// hits and stream context requests from memory.
package filesource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

const maxLineSize = 1024 * 1024

// Reader reads records from multiple files with optional follow mode
type Reader struct {
	paths   []string
	follow  bool
	ctx     context.Context
	cancel  context.CancelFunc
	records chan vlogs.Record
	wg      sync.WaitGroup
	mu      sync.Mutex
	files   map[string]*followedFile
	conv    *Converter
	logger  *zap.Logger
}

// followedFile tracks the read position of a file in follow mode
type followedFile struct {
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial string
	watcher *fsnotify.Watcher
}

// NewReader creates a reader over the files matching patterns
func NewReader(patterns []string, follow bool, logger *zap.Logger) (*Reader, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no file paths provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	expanded, err := expandGlobs(patterns)
	if err != nil {
		return nil, fmt.Errorf("error expanding file globs: %w", err)
	}
	if len(expanded) == 0 {
		return nil, errors.New("no files found matching the provided patterns")
	}

	var valid []string
	for _, path := range expanded {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			valid = append(valid, path)
			continue
		}
		logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
	}
	if len(valid) == 0 {
		return nil, errors.New("no valid readable files found")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reader{
		paths:   valid,
		follow:  follow,
		ctx:     ctx,
		cancel:  cancel,
		records: make(chan vlogs.Record, 100),
		files:   make(map[string]*followedFile),
		conv:    NewConverter(timeutil.NewParser()),
		logger:  logger.Named("filesource"),
	}, nil
}

// expandGlobs expands glob patterns and returns the sorted absolute paths
func expandGlobs(patterns []string) ([]string, error) {
	set := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		for _, match := range matches {
			if abs, err := filepath.Abs(match); err == nil {
				set[abs] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Start begins reading. The channel is closed once every file has been read,
// or after Stop in follow mode.
func (r *Reader) Start() <-chan vlogs.Record {
	r.wg.Add(1)
	go r.run()
	return r.records
}

func (r *Reader) run() {
	defer r.wg.Done()
	defer close(r.records)

	for _, path := range r.paths {
		if err := r.readFile(path); err != nil {
			r.logger.Error("error reading file", zap.String("path", path), zap.Error(err))
		}
	}
	if !r.follow {
		return
	}

	var watchers sync.WaitGroup
	for _, path := range r.paths {
		if err := r.watch(path, &watchers); err != nil {
			r.logger.Error("error setting up watcher", zap.String("path", path), zap.Error(err))
		}
	}
	<-r.ctx.Done()
	watchers.Wait()
	r.closeAll()
}

// readFile reads a file from beginning to end
func (r *Reader) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	source := filepath.Base(path)
	for scanner.Scan() {
		if !r.emit(source, scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

func (r *Reader) emit(source, line string) bool {
	rec, ok := r.conv.Convert(source, line)
	if !ok {
		return true
	}
	select {
	case <-r.ctx.Done():
		return false
	case r.records <- rec:
		return true
	}
}

// watch positions a follower at the end of the file and starts its watcher
func (r *Reader) watch(path string, wg *sync.WaitGroup) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		watcher.Close()
		return err
	}
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		watcher.Close()
		return err
	}
	if err := watcher.Add(path); err != nil {
		f.Close()
		watcher.Close()
		return err
	}

	ff := &followedFile{file: f, reader: bufio.NewReaderSize(f, 64*1024), offset: offset, watcher: watcher}
	r.mu.Lock()
	r.files[path] = ff
	r.mu.Unlock()

	wg.Add(1)
	go r.watchFile(path, ff, wg)
	return nil
}

// watchFile reads appended lines on every write event
func (r *Reader) watchFile(path string, ff *followedFile, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return

		case event, ok := <-ff.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				r.readAppended(path, ff)
			}

		case err, ok := <-ff.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", zap.String("path", path), zap.Error(err))
		}
	}
}

// readAppended emits complete lines written since the last read. A shrunken
// file is treated as rotated and read again from the start.
func (r *Reader) readAppended(path string, ff *followedFile) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() < ff.offset {
		if err := r.reopen(path, ff); err != nil {
			r.logger.Error("error reopening file", zap.String("path", path), zap.Error(err))
			return
		}
		r.logger.Info("reopened file, likely rotated", zap.String("path", path))
	}

	source := filepath.Base(path)
	for {
		chunk, err := ff.reader.ReadString('\n')
		ff.offset += int64(len(chunk))
		if err != nil {
			// keep the unterminated tail until the writer finishes the line
			ff.partial += chunk
			return
		}
		line := strings.TrimRight(ff.partial+chunk, "\r\n")
		ff.partial = ""
		if !r.emit(source, line) {
			return
		}
	}
}

func (r *Reader) reopen(path string, ff *followedFile) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ff.file.Close()
	ff.file = f
	ff.reader = bufio.NewReaderSize(f, 64*1024)
	ff.offset = 0
	ff.partial = ""
	return nil
}

// closeAll closes every followed file and watcher
func (r *Reader) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, ff := range r.files {
		ff.file.Close()
		ff.watcher.Close()
		delete(r.files, path)
	}
}

// Stop stops the reader and releases its files
func (r *Reader) Stop() {
	r.cancel()
}

// Wait waits for the reading goroutines to finish
func (r *Reader) Wait() {
	r.wg.Wait()
}

// Paths returns the files being read
func (r *Reader) Paths() []string {
	return append([]string{}, r.paths...)
}
