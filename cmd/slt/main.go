package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Zeenjinn/sign-language-translation/internal/app"
	"github.com/Zeenjinn/sign-language-translation/internal/capture"
	"github.com/Zeenjinn/sign-language-translation/internal/config"
	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/inference"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/notify"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
	"github.com/Zeenjinn/sign-language-translation/internal/plugin"
	"github.com/Zeenjinn/sign-language-translation/internal/server"
	"github.com/Zeenjinn/sign-language-translation/internal/store"
	"github.com/Zeenjinn/sign-language-translation/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Init(log.Options{})
		log.Fatal(log.Fields{"error": err.Error()}, "failed to load configuration")
	}

	logger := log.Init(log.Options{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Env:   cfg.AppEnv,
	})
	log.Info(log.Fields{"env": cfg.AppEnv, "addr": cfg.HTTPAddr}, "sign language recognizer starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the store
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal(log.Fields{"path": cfg.DatabasePath(), "error": err.Error()}, "failed to initialize store")
	}
	defer st.Close()

	// Sinks: history, websocket clients, plugins and optionally Redis
	hub := server.NewHub(logger)
	fanout := notify.NewFanout(logger, notify.DefaultTimeout,
		notify.NewStoreSink(st, store.SourceWebSocket),
		hub,
	)

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Warn(log.Fields{"dir": cfg.PluginDir, "error": err.Error()}, "failed to discover plugins")
	}
	if found := plugins.ForAction(plugin.ActionAnnounce); len(found) > 0 {
		fanout.Add(notify.NewPluginSink(plugins, plugin.NewExecutor(plugin.DefaultTimeout)))
		log.Info(log.Fields{"count": len(found)}, "announcement plugins loaded")
	}

	if cfg.RedisEnabled() {
		rdb := notify.NewRedisClient(notify.RedisOptions{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		defer rdb.Close()
		fanout.Add(notify.NewRedisSink(rdb, cfg.RedisChannel))
	}

	var tr *tray.Tray
	if cfg.TrayEnabled {
		tr = tray.New()
		fanout.Add(tr)
	}

	// Recognition pipeline
	classifier := inference.NewClient(cfg.ClassifierURL,
		inference.WithThreshold(cfg.ConfidenceThreshold),
		inference.WithTimeout(cfg.ClassifierTimeout),
	)
	p := pipeline.New(classifier, pipeline.Config{
		WindowSize:     cfg.WindowSize,
		Cooldown:       cfg.Cooldown,
		BufferCapacity: cfg.BufferCapacity,
		RequestTimeout: cfg.ClassifierTimeout,
	}, pipeline.WithLogger(logger), pipeline.WithObserver(fanout.Observe))

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		p.Run(ctx)
	}()

	application := app.New(app.Config{
		Recognizer: p,
		CameraOptions: capture.Options{
			DeviceID: cfg.CameraID,
			Width:    cfg.CameraWidth,
			Height:   cfg.CameraHeight,
			FPS:      cfg.CameraFPS,
		},
		DetectorConfig: detector.Config{
			ModelComplexity:        cfg.ModelComplexity,
			SmoothLandmarks:        cfg.SmoothLandmarks,
			MinDetectionConfidence: cfg.MinDetectionConfidence,
			MinTrackingConfidence:  cfg.MinTrackingConfidence,
		},
		Store:  st,
		Logger: logger,
	})

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Info(log.Fields{"dir": webDir}, "serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Recognizer: p,
		Controller: application,
		Hub:        hub,
		Stream:     application.Stream(),
		Logger:     logger,
		WSMaxFPS:   cfg.WSMaxFPS,
	})

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		defer stop()
		if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(log.Fields{"addr": cfg.HTTPAddr, "error": err.Error()}, "http server failed")
		}
	}()

	if tr != nil {
		tr.OnToggle(func(running bool) bool {
			if running {
				if _, err := application.Start(ctx); err != nil {
					log.Warn(log.Fields{"error": err.Error()}, "failed to start capture")
					return false
				}
				return true
			}
			if err := application.Stop(ctx); err != nil {
				log.Warn(log.Fields{"error": err.Error()}, "failed to stop capture")
			}
			return application.Running()
		})
		tr.OnOpen(func() { openBrowser(uiURL(cfg.HTTPAddr)) })
		tr.OnQuit(stop)

		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// The tray needs the main thread; it returns on quit or signal.
		tr.Run()
		stop()
	}

	<-ctx.Done()
	<-serverDone

	log.Info(nil, "shutting down")

	if err := application.Close(); err != nil {
		log.Warn(log.Fields{"error": err.Error()}, "failed to close capture")
	}
	<-pipelineDone
	p.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flushed := make(chan struct{})
	go func() {
		fanout.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-waitCtx.Done():
		log.Warn(nil, "timed out delivering pending recognition events")
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// uiURL turns a listen address like ":8080" into a browsable URL.
func uiURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn(log.Fields{"url": url, "error": err.Error()}, "failed to open browser")
	}
}
