package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "inkd/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one append-only
// JSON Lines file, periodically compacted down to the retention cap.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	f      *os.File
	writes int
}

const (
	fileMaxRecords   = 1000
	fileCompactEvery = 200
)

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path, f: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendRefresh(ctx context.Context, r RefreshRecord) error {
	_ = ctx
	if r.At.IsZero() {
		r.At = time.Now()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrDisabled
	}
	if _, err := s.f.Write(b); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileCompactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("history compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) Recent(ctx context.Context, n int) ([]RefreshRecord, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := readRecords(s.path)
	if err != nil {
		return nil, err
	}
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	// newest first
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (s *fileStore) compactLocked() error {
	recs, err := readRecords(s.path)
	if err != nil {
		return err
	}
	if len(recs) <= fileMaxRecords {
		return nil
	}
	recs = recs[len(recs)-fileMaxRecords:]

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := s.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	s.f = nf
	return nil
}

func readRecords(path string) ([]RefreshRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []RefreshRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r RefreshRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// torn tail write; skip
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
