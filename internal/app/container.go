package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/doeshing/tasq/internal/application/doctor"
	"github.com/doeshing/tasq/internal/application/executor"
	"github.com/doeshing/tasq/internal/application/interpret"
	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/suggest"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/actions"
	"github.com/doeshing/tasq/internal/infrastructure/ai"
	"github.com/doeshing/tasq/internal/infrastructure/cache"
	"github.com/doeshing/tasq/internal/infrastructure/conditions"
	"github.com/doeshing/tasq/internal/infrastructure/config"
	"github.com/doeshing/tasq/internal/infrastructure/history"
	"github.com/doeshing/tasq/internal/infrastructure/interpreter"
	"github.com/doeshing/tasq/internal/infrastructure/learning"
	"github.com/doeshing/tasq/internal/infrastructure/mapper"
	"github.com/doeshing/tasq/internal/infrastructure/security"
	"github.com/doeshing/tasq/internal/infrastructure/store"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/ports"
)

// Container wires up application services with infrastructure adapters.
// The CLI fills in the terminal-facing ports (Confirmer, Clipboard) after
// construction.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         ports.Logger
	Out            io.Writer

	Store        *store.SQLiteStore
	Cache        *cache.SQLiteCache
	HistoryStore ports.HistoryRepository
	Learning     *learning.SQLiteStore
	Guard        *security.Guard
	Mapper       ports.CommandMapper

	Interpreter *interpreter.Interpreter
	Interpret   *interpret.Service
	Executor    *executor.Service
	Router      *router.Service
	Suggest     *suggest.Engine
	Completer   *suggest.AutoCompleter

	DoctorService *doctor.Service

	providers ports.ProviderFactory
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)

	items, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		items.Close()
		return nil, err
	}
	responses, err := cache.NewSQLiteCache(cfg.Cache.Path, ttl)
	if err != nil {
		items.Close()
		return nil, err
	}

	historyStore := history.OpenOrFallback(cfg.History.Path, log)

	guard, err := security.NewGuard(cfg.Security.RulesFile)
	if err != nil {
		log.Warn("guard rules unusable, using defaults", map[string]interface{}{"error": err.Error()})
		guard, err = security.NewGuard("")
		if err != nil {
			items.Close()
			responses.Close()
			return nil, err
		}
	}

	factory := ai.NewFactory()
	provider, err := factory.ForConfig(cfg)
	if err != nil {
		log.Warn("language model unavailable, falling back to keywords", map[string]interface{}{"error": err.Error()})
		provider = nil
	}

	m := mapper.New()
	interp := interpreter.New(provider, m, log, cfg.NLP.MaxAPICallsPerMinute)

	interpretService := &interpret.Service{
		Interpreter:   interp,
		Mapper:        m,
		Cache:         responses,
		Logger:        log,
		CacheCommands: cfg.NLP.CacheCommands,
	}

	// Learning is optional; without it shortcuts and corrections are off.
	learned, err := learning.Open(cfg.Learning.Path)
	if err != nil {
		log.Warn("learning store unavailable", map[string]interface{}{"error": err.Error()})
		learned = nil
	} else {
		interpretService.Learning = learned
	}

	c := &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Out:            os.Stdout,
		Store:          items,
		Cache:          responses,
		HistoryStore:   historyStore,
		Learning:       learned,
		Guard:          guard,
		Mapper:         m,
		Interpreter:    interp,
		Interpret:      interpretService,
		Suggest:        suggest.NewEngine(interpreter.RuleMatcher{}),
		providers:      factory,
	}
	c.Completer = suggest.NewAutoCompleter(c.Suggest, cfg.Interactive.MaxHistory)
	c.Router = c.NewRouter(c.Out)
	c.Executor = c.Router.Executor

	c.DoctorService = &doctor.Service{
		ConfigProvider: cfgLoader,
		Items:          items,
		Cache:          responses,
		History:        historyStore,
		Guard:          guard,
	}
	if learned != nil {
		c.DoctorService.Learning = learned
	}

	return c, nil
}

// NewRouter builds a router whose action output goes to out. The interpreter,
// cache, guard and history are shared with the container's own router.
func (c *Container) NewRouter(out io.Writer) *router.Service {
	runner := actions.NewRunner(c.Store, out)
	return &router.Service{
		Runner:    runner,
		Interpret: c.Interpret,
		Executor: &executor.Service{
			Mapper:     c.Mapper,
			Runner:     runner,
			Preview:    out,
			Conditions: conditions.New(c.Store),
			Logger:     c.Logger,
		},
		Guard:   c.Guard,
		History: c.HistoryStore,
		Logger:  c.Logger,
	}
}

// SetConfirmer installs the operator prompt on the default router.
func (c *Container) SetConfirmer(confirmer ports.Confirmer) {
	c.Router.Confirmer = confirmer
	c.Executor.Confirmer = confirmer
}

// SetClipboard installs clipboard support on the default router.
func (c *Container) SetClipboard(clip ports.Clipboard) {
	c.Router.Clipboard = clip
}

// Reload re-reads the configuration and swaps the language-model provider,
// so changes made by `nlp config` take effect in the running process.
func (c *Container) Reload(ctx context.Context) error {
	cfg, err := c.ConfigProvider.Load(ctx)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Interpret.CacheCommands = cfg.NLP.CacheCommands
	if ttl, err := cfg.CacheTTL(); err == nil && c.Cache != nil {
		c.Cache.SetTTL(ttl)
	}
	provider, err := c.providers.ForConfig(cfg)
	if err != nil {
		return fmt.Errorf("build provider: %w", err)
	}
	c.Interpreter.SetProvider(provider)
	return nil
}

// Close releases the databases.
func (c *Container) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.Learning != nil {
		errs = append(errs, c.Learning.Close())
	}
	if closer, ok := c.HistoryStore.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
