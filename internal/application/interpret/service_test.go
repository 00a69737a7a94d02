package interpret

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/mapper"
)

type stubInterpreter struct {
	calls   int32
	cmd     domain.StructuredCommand
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (s *stubInterpreter) Parse(ctx context.Context, text string) (domain.StructuredCommand, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	return s.cmd, s.err
}

func (s *stubInterpreter) ParseToCompoundArgs(ctx context.Context, text string) ([][]string, string, error) {
	return nil, "", errors.New("not used")
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.StructuredCommand
	putErr  error
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.StructuredCommand{}}
}

func (c *memCache) Get(text string) (domain.StructuredCommand, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := c.entries[domain.NormalizeInput(text)]
	return cmd, ok
}

func (c *memCache) Put(text string, cmd domain.StructuredCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[domain.NormalizeInput(text)] = cmd
	return nil
}

func (c *memCache) Clear() error                      { return nil }
func (c *memCache) Cleanup() (int, error)             { return 0, nil }
func (c *memCache) Stats() (domain.CacheStats, error) { return domain.CacheStats{}, nil }
func (c *memCache) SetTTL(time.Duration)              {}
func (c *memCache) TTL() time.Duration                { return domain.DefaultCacheTTL }

func modelTask(content string) domain.StructuredCommand {
	return domain.StructuredCommand{Action: domain.ActionTask, Content: content, Source: domain.SourceModel}
}

func TestService_CachesModelAnswers(t *testing.T) {
	interp := &stubInterpreter{cmd: modelTask("water plants")}
	cache := newMemCache()
	svc := &Service{Interpreter: interp, Cache: cache, CacheCommands: true}

	cmd, hit, err := svc.Interpret(context.Background(), "remind me to water plants")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "water plants", cmd.Content)

	cmd, hit, err = svc.Interpret(context.Background(), "  Remind me   to WATER plants ")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "water plants", cmd.Content)
	assert.EqualValues(t, 1, atomic.LoadInt32(&interp.calls))
}

func TestService_RespectsCacheCommandsFlag(t *testing.T) {
	interp := &stubInterpreter{cmd: modelTask("water plants")}
	cache := newMemCache()
	svc := &Service{Interpreter: interp, Cache: cache, CacheCommands: false}

	for i := 0; i < 2; i++ {
		_, hit, err := svc.Interpret(context.Background(), "remind me to water plants")
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&interp.calls))
	assert.Zero(t, cache.puts)
}

func TestService_SkipsKeywordGuesses(t *testing.T) {
	interp := &stubInterpreter{cmd: domain.StructuredCommand{Action: domain.ActionTask, Content: "something vague", Source: domain.SourceKeyword}}
	cache := newMemCache()
	svc := &Service{Interpreter: interp, Cache: cache, CacheCommands: true}

	_, _, err := svc.Interpret(context.Background(), "something vague")
	require.NoError(t, err)
	assert.Zero(t, cache.puts)
}

func TestService_CachePutFailureIsNotFatal(t *testing.T) {
	cache := newMemCache()
	cache.putErr = &domain.CacheError{Op: "put", Err: errors.New("disk full")}
	svc := &Service{Interpreter: &stubInterpreter{cmd: modelTask("call mom")}, Cache: cache, CacheCommands: true}

	cmd, _, err := svc.Interpret(context.Background(), "call mom later")
	require.NoError(t, err)
	assert.Equal(t, "call mom", cmd.Content)
	assert.Equal(t, 1, cache.puts)
}

func TestService_InterpreterErrorPropagates(t *testing.T) {
	want := &domain.InterpretError{Input: "??", Message: "no idea"}
	svc := &Service{Interpreter: &stubInterpreter{err: want}, Cache: newMemCache(), CacheCommands: true}

	_, _, err := svc.Interpret(context.Background(), "??")
	var ie *domain.InterpretError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "no idea", ie.Message)
}

func TestService_EmptyInput(t *testing.T) {
	svc := &Service{Interpreter: &stubInterpreter{}}
	_, _, err := svc.Interpret(context.Background(), "   ")
	var ie *domain.InterpretError
	assert.ErrorAs(t, err, &ie)
}

func TestService_SharesInFlightCalls(t *testing.T) {
	interp := &stubInterpreter{
		cmd:     modelTask("pay rent"),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 4),
	}
	svc := &Service{Interpreter: interp}

	var wg sync.WaitGroup
	results := make([]string, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cmd, _, _ := svc.Interpret(context.Background(), "pay rent")
		results[0] = cmd.Content
	}()
	<-interp.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		cmd, _, _ := svc.Interpret(context.Background(), "PAY  rent")
		results[1] = cmd.Content
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(interp.gate)
	wg.Wait()

	assert.Equal(t, []string{"pay rent", "pay rent"}, results)
	assert.EqualValues(t, 1, atomic.LoadInt32(&interp.calls))
}

func TestService_ResolveMapsCompound(t *testing.T) {
	compound := domain.StructuredCommand{
		Action: domain.ActionNLP,
		Source: domain.SourceModel,
		Compound: []domain.StructuredCommand{
			modelTask("buy milk"),
			{Action: domain.ActionList, QueryType: domain.QueryDueToday, Source: domain.SourceModel},
		},
	}
	svc := &Service{Interpreter: &stubInterpreter{cmd: compound}, Mapper: mapper.New()}

	got, err := svc.Resolve(context.Background(), "buy milk and show what's due")
	require.NoError(t, err)
	require.Len(t, got.Args, 2)
	assert.Equal(t, []string{"task", "buy milk"}, got.Args[0])
	assert.Equal(t, "list", got.Args[1][0])
	assert.Contains(t, got.Description, "; ")
}

type memLearning struct {
	shortcuts   map[string]domain.StructuredCommand
	corrections map[string]domain.StructuredCommand
}

func (l memLearning) Shortcut(name string) (domain.StructuredCommand, bool) {
	cmd, ok := l.shortcuts[domain.NormalizeInput(name)]
	return cmd, ok
}

func (l memLearning) Correction(input string) (domain.StructuredCommand, bool) {
	cmd, ok := l.corrections[domain.NormalizeInput(input)]
	return cmd, ok
}

func TestService_LearningBeatsCacheAndInterpreter(t *testing.T) {
	interp := &stubInterpreter{cmd: modelTask("from model")}
	cache := newMemCache()
	cache.entries["pick up groceries"] = modelTask("from cache")
	learning := memLearning{
		shortcuts: map[string]domain.StructuredCommand{
			"gm": {Action: domain.ActionList, Category: "morning"},
		},
		corrections: map[string]domain.StructuredCommand{
			"pick up groceries": {Action: domain.ActionTask, Content: "groceries", Category: "home"},
		},
	}
	svc := &Service{Interpreter: interp, Cache: cache, Learning: learning, CacheCommands: true}

	cmd, hit, err := svc.Interpret(context.Background(), "GM")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, domain.SourceShortcut, cmd.Source)
	assert.Equal(t, "morning", cmd.Category)

	cmd, hit, err = svc.Interpret(context.Background(), "Pick up  groceries")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, domain.SourceLearned, cmd.Source)
	assert.Equal(t, "groceries", cmd.Content)

	assert.Equal(t, int32(0), atomic.LoadInt32(&interp.calls))
	assert.Zero(t, cache.puts, "learned answers must not be cached")
}

func TestService_LearningMissFallsThrough(t *testing.T) {
	interp := &stubInterpreter{cmd: modelTask("call mom")}
	svc := &Service{Interpreter: interp, Learning: memLearning{}}

	cmd, _, err := svc.Interpret(context.Background(), "remind me to call mom")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceModel, cmd.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&interp.calls))
}
