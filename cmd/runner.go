package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/jobs"
	"github.com/desertthunder/genie/internal/realtime"
	"github.com/desertthunder/genie/internal/repositories"
	"github.com/desertthunder/genie/internal/services"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/desertthunder/genie/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	plans      *services.MealPlanService
	chats      *services.ChatService
	oauth      *services.OAuthProvider
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	mealPlans *repositories.MealPlanRepository
	sessions  *repositories.SessionRepository

	session *services.Session
	store   *jobs.Store
	engine  *tasks.PlanEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// DB is the migrated sqlite cache. Commands that need it fail with [shared.ErrServiceUnavailable] when nil.
	DB *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(
			opts.Config.Backend.BaseURL,
			opts.HTTPClient,
			services.WithRateLimit(opts.Config.Backend.RequestsPerSecond, 1),
		)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		plans:      services.NewMealPlanService(opts.API),
		chats:      services.NewChatService(opts.API),
		httpClient: opts.HTTPClient,
		output:     opts.Output,
		db:         opts.DB,
	}

	if provider, err := services.NewOAuthProvider(opts.Config.Auth); err == nil {
		r.oauth = provider
	}

	if opts.DB != nil {
		r.mealPlans = repositories.NewMealPlanRepository(opts.DB)
		r.sessions = repositories.NewSessionRepository(opts.DB)
	}

	r.SetLogger(opts.Logger)
	return r
}

// SetLogger replaces the logger and rebuilds the job store and plan engine around it.
//
// Any plans held by the previous store are dropped.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l

	storeOpts := []jobs.StoreOption{jobs.WithLogger(l)}
	if r.mealPlans != nil {
		storeOpts = append(storeOpts, jobs.WithPersister(r.mealPlans))
	}
	r.store = jobs.NewStore(storeOpts...)
	r.engine = tasks.NewPlanEngine(r.plans, r.store, tasks.WithLogger(l))
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, plansCommand, chatsCommand, cacheCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireDB returns [shared.ErrServiceUnavailable] when the local cache could not be opened.
func (r *Runner) requireDB() error {
	if r.db == nil {
		return fmt.Errorf("%w: local database not available, run 'genie setup database'", shared.ErrServiceUnavailable)
	}
	return nil
}

// authenticate restores the stored session and attaches it to the REST client.
func (r *Runner) authenticate(ctx context.Context) (*services.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	if err := r.requireDB(); err != nil {
		return nil, err
	}

	stored, err := r.sessions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: run 'genie auth login'", err)
	}

	session, err := r.sessionFor(ctx, stored.PrincipalID, stored.Token)
	if err != nil {
		return nil, err
	}

	r.session = session
	r.api.SetTokenProvider(session)
	r.logger.Debug("restored session", "principal", session.PrincipalID(), "expiry", stored.Token.Expiry)
	return session, nil
}

// sessionFor refreshes through the identity provider when one is configured, else uses tok as-is.
func (r *Runner) sessionFor(ctx context.Context, principalID string, tok *oauth2.Token) (*services.Session, error) {
	if r.oauth != nil {
		return r.oauth.Session(ctx, tok)
	}
	if principalID == "" {
		p, err := services.PrincipalFromToken(services.BearerToken(tok))
		if err != nil {
			return nil, err
		}
		principalID = p
	}
	return services.NewStaticSession(principalID, tok), nil
}

// saveSession writes the session's latest token back to the store so refreshed tokens survive the process.
func (r *Runner) saveSession(ctx context.Context) {
	if r.session == nil || r.sessions == nil {
		return
	}
	tok := r.session.Current()
	if tok == nil {
		return
	}
	if _, err := r.sessions.Save(ctx, r.session.PrincipalID(), tok); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
	}
}

// startRealtime runs a push channel manager that feeds the job store and re-fetches plans after
// every reconnect. Backend reachability is probed so the manager sees offline and online
// transitions. viewActive marks the caller as a view that needs the channel. The returned stop
// function tears everything down and waits for the loop to exit.
func (r *Runner) startRealtime(ctx context.Context, session *services.Session, viewActive bool) (*realtime.Manager, func()) {
	manager := realtime.NewManager(realtime.Options{
		URL:              r.config.Backend.RealtimeURL,
		Backoff:          realtime.BackoffFromConfig(r.config.Realtime),
		HandshakeTimeout: r.config.Realtime.HandshakeTimeout(),
		Handler:          r.store,
		Logger:           r.logger,
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := manager.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("realtime manager stopped", "error", err)
		}
	}()

	updates, unsubscribe := manager.Subscribe(16)
	go r.engine.Recover(runCtx, updates)

	if interval := r.config.Realtime.ProbeInterval(); interval > 0 {
		probe, err := realtime.TCPProbe(r.config.Backend.RealtimeURL, r.config.Realtime.HandshakeTimeout())
		if err != nil {
			r.logger.Warn("reachability checks disabled", "error", err)
		} else {
			go realtime.WatchNetwork(runCtx, manager, probe, interval, r.logger)
		}
	}

	if viewActive {
		if err := manager.SetViewActive(true); err != nil {
			r.logger.Warn("failed to activate realtime view", "error", err)
		}
	}
	if err := manager.SignIn(session); err != nil {
		r.logger.Warn("realtime sign-in failed", "error", err)
	}

	return manager, func() {
		unsubscribe()
		manager.Close()
		cancel()
		<-done
	}
}

// drainProgress prints progress messages until the returned channel is closed.
func (r *Runner) drainProgress(prefix string) (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s %s\n", prefix, update.Message)
		}
	}()
	return progressCh, done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
