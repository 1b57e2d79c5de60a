package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rafaelguerrae/TeamSync/internal/event"
	"github.com/rafaelguerrae/TeamSync/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditService keeps an append-only JSON-lines record of every bus event so
// users can review their own sign-ins and team changes.
type AuditService struct {
	filePath string
	mu       sync.Mutex

	unsubscribe func()
	done        chan struct{}
}

type AuditQuery struct {
	ActorID int64
	Type    string
	Limit   int
}

func NewAuditService(filePath string) (*AuditService, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare audit directory: %w", err)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("initialize audit file: %w", err)
	}
	_ = f.Close()

	return &AuditService{filePath: filePath}, nil
}

// Start records events from bus until Close.
func (s *AuditService) Start(bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for e := range events {
			if err := s.Record(e); err != nil {
				slog.Warn("failed to record audit event", "type", string(e.Type), "error", err)
			}
		}
	}()
}

func (s *AuditService) Close() {
	if s.unsubscribe == nil {
		return
	}
	s.unsubscribe()
	<-s.done
	s.unsubscribe = nil
}

func (s *AuditService) Record(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// Query returns matching events, newest first. ActorID is required; users
// only ever see their own activity.
func (s *AuditService) Query(query AuditQuery) ([]event.Event, error) {
	if query.ActorID <= 0 {
		return nil, fmt.Errorf("%w: actor is required", model.ErrInvalidInput)
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditLimit
	}
	if query.Limit > maxAuditLimit {
		query.Limit = maxAuditLimit
	}
	typ := strings.ToLower(strings.TrimSpace(query.Type))

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items := make([]event.Event, 0, 32)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var e event.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.ActorID != query.ActorID {
			continue
		}
		if typ != "" && string(e.Type) != typ {
			continue
		}
		items = append(items, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(items)
	if len(items) > query.Limit {
		items = items[:query.Limit]
	}
	return items, nil
}
