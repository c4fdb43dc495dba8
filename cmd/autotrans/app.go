package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/cache"
	"github.com/ZaguanLabs/autotrans/config"
	"github.com/ZaguanLabs/autotrans/dom"
	"github.com/ZaguanLabs/autotrans/pipeline"
	"github.com/ZaguanLabs/autotrans/prefs"
	"github.com/ZaguanLabs/autotrans/provider"
	"github.com/ZaguanLabs/autotrans/scanner"
	"github.com/ZaguanLabs/autotrans/server"
	"github.com/ZaguanLabs/autotrans/transport"
)

// prefsRedisPrefix namespaces preference keys in a shared Redis.
const prefsRedisPrefix = "autotrans:prefs:"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string
	debug   bool

	cfg    *config.Config
	logger *zap.Logger

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   autotrans.Name,
		Short: "Automatic page translation",
		Long: `Translate the text of HTML pages through a translation backend, keeping the
originals so a page can be restored to its source language.

Settings come from autotrans.yaml, .env and AUTOTRANS_* environment variables.`,
		Version:       autotrans.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ./autotrans.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "verbose development logging")

	root.AddCommand(
		a.serveCmd(),
		a.translateCmd(),
		a.restoreCmd(),
		a.watchCmd(),
		a.langCmd(),
		a.detectCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, a.debug || cfg.Debug)
	return nil
}

func newLogger(w io.Writer, debug bool) *zap.Logger {
	if debug {
		enc := zap.NewDevelopmentEncoderConfig()
		return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zap.DebugLevel))
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zap.InfoLevel))
}

// service builds the in-process translation service from the provider and
// server cache settings.
func (a *app) service(ctx context.Context) (*server.Service, func(), error) {
	pc := a.cfg.Provider
	p, closeProvider, err := provider.New(ctx, provider.Config{
		Name:              pc.Name,
		APIKey:            pc.APIKey,
		Model:             pc.Model,
		BaseURL:           pc.BaseURL,
		Temperature:       pc.Temperature,
		Credentials:       pc.Credentials,
		Retries:           pc.Retries,
		RequestsPerMinute: pc.RequestsPerMinute,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		store      autotrans.TranslationCache
		closeStore = func() {}
	)
	if url := a.cfg.Server.RedisURL; url != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:    url,
			TTL:    a.cfg.Server.CacheTTL,
			Logger: a.logger,
		})
		if err != nil {
			_ = closeProvider()
			return nil, nil, err
		}
		store = rc
		closeStore = func() { _ = rc.Close() }
	} else {
		store = cache.NewInMemoryCache(cache.WithTTL(a.cfg.Server.CacheTTL))
	}

	svc := server.NewService(p,
		server.WithCache(store),
		server.WithLogger(a.logger),
		server.WithStyle(autotrans.TranslationStyle(a.cfg.Server.Style)),
		server.WithDomainContext(a.cfg.Server.Context),
	)
	return svc, func() {
		closeStore()
		if err := closeProvider(); err != nil {
			a.logger.Warn("closing provider failed", zap.Error(err))
		}
	}, nil
}

// backend returns the remote backend when one is configured, the
// in-process service otherwise.
func (a *app) backend(ctx context.Context) (autotrans.Backend, func(), error) {
	if url := a.cfg.Backend.URL; url != "" {
		return transport.NewHTTPBackend(url, transport.WithTimeout(a.cfg.Backend.Timeout)), func() {}, nil
	}
	return a.service(ctx)
}

// client builds the page client. Its cache is loaded from and saved to the
// configured snapshot file.
func (a *app) client(ctx context.Context) (*autotrans.Client, func(), error) {
	backend, closeBackend, err := a.backend(ctx)
	if err != nil {
		return nil, nil, err
	}

	mem := cache.NewInMemoryCache(
		cache.WithTTL(a.cfg.Cache.TTL),
		cache.WithMaxEntries(a.cfg.Cache.MaxEntries),
	)
	snapshot := a.cfg.Cache.Snapshot
	if snapshot != "" {
		res, err := cache.NewImporter(mem).ImportFromFile(snapshot)
		if err != nil {
			a.logger.Warn("loading cache snapshot failed", zap.String("path", snapshot), zap.Error(err))
		} else {
			a.logger.Debug("cache snapshot loaded", zap.Int("entries", res.Imported))
		}
	}

	client := autotrans.NewClient(backend,
		autotrans.WithClientCache(mem),
		autotrans.WithClientSourceLang(a.cfg.SourceLang),
		autotrans.WithClientLogger(a.logger),
	)
	return client, func() {
		if snapshot != "" {
			meta := map[string]string{"source_lang": a.cfg.SourceLang}
			if err := cache.NewExporter(mem).ExportToFile(snapshot, meta); err != nil {
				a.logger.Warn("saving cache snapshot failed", zap.String("path", snapshot), zap.Error(err))
			}
		}
		closeBackend()
	}, nil
}

func (a *app) newScanner() *scanner.Scanner {
	pc := a.cfg.Pipeline
	return scanner.New(
		scanner.WithExcludedTags(pc.ExcludedTags...),
		scanner.WithExcludedSelectors(pc.ExcludedSelectors...),
		scanner.WithMinLength(pc.MinLength),
	)
}

func (a *app) newPipeline(translator pipeline.BatchTranslator) *pipeline.Pipeline {
	return pipeline.New(translator, a.newScanner(),
		pipeline.WithBatchSize(a.cfg.Pipeline.BatchSize),
		pipeline.WithBatchDelay(a.cfg.Pipeline.BatchDelay),
		pipeline.WithSourceLang(a.cfg.SourceLang),
		pipeline.WithLogger(a.logger),
	)
}

func (a *app) preferences() (*prefs.Preferences, func(), error) {
	pc := a.cfg.Prefs
	switch pc.Driver {
	case config.DriverSQLite:
		kv, err := prefs.OpenSQLite(pc.Path)
		if err != nil {
			return nil, nil, err
		}
		return prefs.New(kv), func() { _ = kv.Close() }, nil
	case config.DriverRedis:
		opts, err := redis.ParseURL(pc.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid prefs.redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		return prefs.New(prefs.NewRedisKV(client, prefsRedisPrefix)), func() { _ = client.Close() }, nil
	default:
		return prefs.New(prefs.NewMemoryKV()), func() {}, nil
	}
}

// language returns explicit when set, otherwise the persisted language,
// otherwise the configured default.
func (a *app) language(ctx context.Context, p *prefs.Preferences, explicit string) (string, error) {
	code := explicit
	if code == "" {
		saved, ok, err := p.Language(ctx)
		if err != nil {
			return "", err
		}
		code = a.cfg.DefaultLang
		if ok {
			code = saved
		}
	}

	lang, err := autotrans.NormalizeLanguage(code)
	if err != nil || !autotrans.IsSupported(lang) {
		return "", fmt.Errorf("%w: %q", autotrans.ErrUnsupportedLanguage, code)
	}
	return lang, nil
}

func readDocument(path string) (*dom.HTMLDocument, error) {
	f, err := os.Open(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return dom.ParseHTML(f)
}

// writeDocument renders doc to path, or to stdout when path is empty.
func (a *app) writeDocument(doc *dom.HTMLDocument, path string) error {
	if path == "" {
		return doc.Render(a.stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".autotrans-out-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := doc.Render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
