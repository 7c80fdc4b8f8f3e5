package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Cyclone1070/agentcore/internal/config"
	"github.com/Cyclone1070/agentcore/internal/interrupt"
	"github.com/Cyclone1070/agentcore/internal/metrics"
	"github.com/Cyclone1070/agentcore/internal/permission"
	"github.com/Cyclone1070/agentcore/internal/provider"
	"github.com/Cyclone1070/agentcore/internal/ratelimit"
	"github.com/Cyclone1070/agentcore/internal/tokencount"
	"github.com/Cyclone1070/agentcore/internal/tool/builtin"
	"github.com/Cyclone1070/agentcore/internal/ui"
	"github.com/Cyclone1070/agentcore/internal/workflow"
	"github.com/Cyclone1070/agentcore/internal/workflow/loop"
	"github.com/Cyclone1070/agentcore/internal/workflow/toolmanager"
)

const metricsShutdownTimeout = 5 * time.Second

// session owns everything that lives across requests.
type session struct {
	logger     *slog.Logger
	provider   provider.Provider
	tools      *toolmanager.ToolManager
	perms      *permission.Manager
	limiter    *ratelimit.Limiter
	counter    *tokencount.Counter
	observer   func(workflow.Event)
	controller *interrupt.Controller
	term       *ui.Terminal
	loopCfg    loop.Config

	running atomic.Bool
	history []provider.Message
}

func run(ctx context.Context, cfg *config.Config, f *flags, request string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	root := f.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	workspace, err := builtin.NewWorkspace(root, cfg.ToolLimits())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	choice, err := chooseProvider(cfg.Provider, os.Getenv)
	if err != nil {
		return err
	}
	p, err := newProvider(ctx, choice, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise %s: %w", choice.name, err)
	}
	logger.Info("provider ready", "provider", choice.name, "model", p.Model(), "context_window", p.ContextWindow())

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	s, err := newSession(cfg, logger, p, workspace, interactive, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(p.Model())
	s.observer = metrics.Chain(recorder.Observe, s.term.Observe)
	s.limiter = ratelimit.New(cfg.LimiterConfig(), ratelimit.WithLogger(logger), ratelimit.WithWaitObserver(recorder.ObserveWait))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	if pauseSignal != nil {
		signal.Notify(sigs, pauseSignal)
	}
	defer signal.Stop(sigs)
	g.Go(func() error {
		return s.watchSignals(gctx, sigs, cancel)
	})

	if f.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, f.metricsAddr, recorder.Handler(), logger)
		})
	}

	g.Go(func() error {
		defer cancel()
		if request != "" {
			return s.ask(gctx, request)
		}
		if !interactive {
			return errors.New("no request given and stdin is not a terminal")
		}
		return s.repl(gctx)
	})

	return g.Wait()
}

func newSession(cfg *config.Config, logger *slog.Logger, p provider.Provider, workspace *builtin.Workspace, interactive bool, in io.Reader, out io.Writer) (*session, error) {
	termOpts := []ui.Option{ui.WithStyles(interactive)}
	renderer, err := ui.NewPlainRenderer(ui.DefaultWrapWidth)
	if interactive {
		width := ui.DefaultWrapWidth
		if w, _, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil && w > 0 {
			width = min(w, ui.DefaultWrapWidth)
		}
		renderer, err = ui.NewGlamourRenderer(width)
	}
	if err != nil {
		logger.Warn("markdown rendering disabled", "error", err)
	} else {
		termOpts = append(termOpts, ui.WithRenderer(renderer))
	}
	terminal := ui.NewTerminal(in, out, termOpts...)

	permOpts := []permission.Option{
		permission.WithLevels(cfg.PermissionLevels()),
		permission.WithSkip(cfg.Permission.Skip),
		permission.WithYolo(cfg.Permission.Yolo),
		permission.WithLogger(logger),
	}
	if interactive {
		permOpts = append(permOpts, permission.WithPrompter(terminal.Prompt))
	}

	counter, err := tokencount.New()
	if err != nil {
		logger.Warn("falling back to approximate token counts", "error", err)
		counter = nil
	}

	loopCfg := cfg.LoopConfig()
	if loopCfg.ContextWindow == 0 {
		loopCfg.ContextWindow = p.ContextWindow()
	}

	return &session{
		logger:     logger,
		provider:   p,
		tools:      toolmanager.NewToolManager(workspace.Tools()...),
		perms:      permission.NewManager(permOpts...),
		counter:    counter,
		observer:   terminal.Observe,
		controller: interrupt.NewController(context.Background()),
		term:       terminal,
		loopCfg:    loopCfg,
	}, nil
}

// ask runs one request on top of the session history.
func (s *session) ask(ctx context.Context, request string) error {
	token := s.controller.Reset()
	s.running.Store(true)
	defer s.running.Store(false)

	opts := []loop.Option{
		loop.WithToken(token),
		loop.WithObserver(s.observer),
		loop.WithLogger(s.logger),
	}
	if s.limiter != nil {
		opts = append(opts, loop.WithLimiter(s.limiter))
	}
	if s.counter != nil {
		opts = append(opts, loop.WithCounter(s.counter))
	}

	res, err := loop.NewLoop(s.provider, s.tools, s.perms, s.loopCfg, opts...).Run(ctx, request, s.history)
	if res != nil {
		s.history = res.History
		s.logger.Debug("request finished",
			"iterations", res.Iterations,
			"tool_calls", res.ToolCalls,
			"aborted", res.Aborted,
			"cap_reached", res.CapReached,
		)
	}
	return err
}

// repl reads requests until EOF, "exit" or cancellation. A failed request is
// reported and the session continues.
func (s *session) repl(ctx context.Context) error {
	for {
		line, err := s.term.Prompt(ctx, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		request := strings.TrimSpace(line)
		switch request {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := s.ask(ctx, request); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("request failed", "error", err)
		}
	}
}

// watchSignals aborts the running request on interrupt, or stops the session
// when nothing is running. The pause signal toggles pause and resume of the
// running request.
func (s *session) watchSignals(ctx context.Context, sigs <-chan os.Signal, stop context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			if pauseSignal != nil && sig == pauseSignal {
				s.togglePause()
				continue
			}
			if s.running.Load() {
				s.logger.Info("interrupt received, aborting request")
				s.controller.Abort()
				continue
			}
			stop()
			return nil
		}
	}
}

func (s *session) togglePause() {
	if !s.running.Load() {
		return
	}
	if s.controller.Token().Paused() {
		s.logger.Info("resuming request")
		s.controller.Resume()
		return
	}
	s.logger.Info("pausing request before the next step")
	s.controller.Pause()
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
