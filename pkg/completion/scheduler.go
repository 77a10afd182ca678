package completion

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrSuperseded is returned for a request cancelled by a newer request for
// the same document.
var ErrSuperseded = errors.New("completion request superseded")

type inflight struct {
	id     string
	cancel context.CancelFunc
}

// Scheduler runs completion requests, keeping at most one in flight per
// document. A new request for a document cancels the previous one.
type Scheduler struct {
	engine *Engine

	mu       sync.Mutex
	inflight map[string]*inflight
}

func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{
		engine:   engine,
		inflight: make(map[string]*inflight),
	}
}

// Complete runs a request for the document identified by key.
func (s *Scheduler) Complete(ctx context.Context, key string, text string, cursor int) (*Result, error) {
	id := uuid.NewString()
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = &inflight{id: id, cancel: cancel}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if cur, ok := s.inflight[key]; ok && cur.id == id {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
	}()

	logger := zerolog.Ctx(ctx).With().Str("request_id", id).Str("document", key).Logger()
	reqCtx = logger.WithContext(reqCtx)

	res, err := s.engine.Complete(reqCtx, text, cursor)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			logger.Debug().Msg("request superseded")
			return nil, errors.Errorf("request %s: %w", id, ErrSuperseded)
		}
		return nil, err
	}
	return res, nil
}

// InFlight reports the number of documents with a running request.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
