/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"warlock.dev/warlock/cmd/config"
	"warlock.dev/warlock/internal/cachestore"
	"warlock.dev/warlock/internal/filerecord"
	"warlock.dev/warlock/internal/fileops"
	"warlock.dev/warlock/internal/importscan"
	"warlock.dev/warlock/internal/logging"
	"warlock.dev/warlock/internal/orchestrator"
	"warlock.dev/warlock/internal/sourceconfig"
	"warlock.dev/warlock/internal/transport"
	"warlock.dev/warlock/internal/watch"
)

const artifactCacheSize = 256

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dev server with live reload",
	Long: `Watch a project's sources, transpile and cache rewritten modules,
and serve them with live reload to an external ECMAScript host process.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	projectDir := viper.GetString("projectDir")
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("serve: determine working directory: %w", err)
		}
	}

	verbose := viper.GetBool("verbose")

	defaults := config.DefaultServeConfig()
	port := viper.GetInt("serve.port")
	if port == 0 {
		port = defaults.Port
	}
	debounceMs := viper.GetInt("serve.debounceMs")
	if debounceMs == 0 {
		debounceMs = defaults.DebounceMs
	}
	batchSize := viper.GetInt("serve.batchSize")
	if batchSize == 0 {
		batchSize = defaults.BatchSize
	}
	envFile := viper.GetString("serve.envFile")
	if envFile == "" {
		envFile = defaults.EnvFile
	}
	watchIgnore := viper.GetStringSlice("serve.watchIgnore")

	log := logging.NewInteractiveLogger(verbose)
	if starter, ok := log.(interface{ Start() }); ok {
		starter.Start()
	}
	defer func() {
		if stopper, ok := log.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}()

	fs := fileops.NewOSFileSystem()
	cache, err := cachestore.New(projectDir, fs, artifactCacheSize)
	if err != nil {
		return fmt.Errorf("serve: open cache store: %w", err)
	}

	srcConfig, err := sourceconfig.Load(filepath.Join(projectDir, "tsconfig.json"), fs)
	if err != nil {
		return fmt.Errorf("serve: load compiler config: %w", err)
	}

	svc := &filerecord.Services{
		FS:          fs,
		Cache:       cache,
		Config:      srcConfig,
		ProjectRoot: projectDir,
		ExportsOf: func(absolutePath string) (importscan.ExportInfo, bool) {
			relativePath := absolutePath
			if rel, err := filepath.Rel(projectDir, absolutePath); err == nil {
				relativePath = filepath.ToSlash(rel)
			}
			if info, ok := cache.ExportInfo(relativePath); ok {
				return info, true
			}
			data, err := fs.ReadFile(absolutePath)
			if err != nil {
				return importscan.ExportInfo{}, false
			}
			info := importscan.AnalyzeExports(data)
			cache.SetExportInfo(relativePath, info)
			return info, true
		},
	}

	orch := orchestrator.New(orchestrator.Options{
		ProjectRoot: projectDir,
		EnvFile:     envFile,
		BatchSize:   batchSize,
		WatchOpts: watch.Options{
			Root:     projectDir,
			EnvFile:  envFile,
			Exclude:  watchIgnore,
			Debounce: time.Duration(debounceMs) * time.Millisecond,
		},
	}, svc)

	hub := transport.NewHub()
	log.Info("Bringing files up to date...")
	if err := orch.Startup(context.Background()); err != nil {
		return fmt.Errorf("serve: startup: %w", err)
	}
	log.Info("Startup complete")

	if broadcaster, ok := log.(interface{ SetBroadcaster(logging.Broadcaster) }); ok {
		broadcaster.SetBroadcaster(hub)
	}
	orch.Broadcast = hub.ClearModule

	wsURL := fmt.Sprintf("ws://localhost:%d/.warlock/ws", port)
	transportSrv := transport.NewServer("/.warlock/cache", "/.warlock/ws", wsURL, cache, hub, orch.Registry())

	orch.OnBatchComplete = func(ev orchestrator.BatchEvent) {
		total := len(ev.Added) + len(ev.Changed) + len(ev.Deleted)
		log.Info("Processed batch: %d added, %d changed, %d deleted (%d total)", len(ev.Added), len(ev.Changed), len(ev.Deleted), total)
	}

	if err := orch.Watch(); err != nil {
		return fmt.Errorf("serve: start watcher: %w", err)
	}
	defer func() {
		if err := orch.Close(); err != nil {
			log.Warning("Watcher close: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: transportSrv.Handler(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
		}
	}()
	defer func() {
		hub.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warning("HTTP server shutdown: %v", err)
		}
	}()

	log.Info("Server started on http://localhost:%d", port)
	if setter, ok := log.(interface{ SetStatus(string) }); ok {
		statusMsg := fmt.Sprintf("Running on %s%s Press %s for help, %s to quit",
			pterm.FgCyan.Sprintf("http://localhost:%d", port),
			pterm.FgGray.Sprint(" |"),
			pterm.FgYellow.Sprint("h"),
			pterm.FgYellow.Sprint("q"),
		)
		setter.SetStatus(statusMsg)
	}

	quitChan := make(chan struct{})
	go func() {
		time.Sleep(100 * time.Millisecond)
		handleKeyboardInput(orch, log, port, quitChan)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quitChan:
	case <-sigChan:
	}

	if setter, ok := log.(interface{ SetStatus(string) }); ok {
		setter.SetStatus("Shutting down...")
	}
	log.Info("Shutting down server...")
	return nil
}

func openBrowser(url string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "linux":
		c = exec.Command("xdg-open", url)
	case "windows":
		c = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return c.Start()
}

func showHelp(log logging.Logger) {
	log.Info(`Keyboard Shortcuts
	m - Force rebuild (rescan and reconcile with the manifest; unchanged files are reused)
	v - Cycle log levels (normal/verbose)
	o - Open in browser
	c - Clear console
	h - Show this help
	q - Quit server
	Ctrl+C - Also quits server`)
}

// handleKeyboardInput reads keyboard input and handles runtime commands.
func handleKeyboardInput(orch *orchestrator.Orchestrator, log logging.Logger, port int, quitChan chan struct{}) {
	verbose := false

	err := keyboard.Listen(func(key keys.Key) (stop bool, err error) {
		if key.Code == keys.CtrlC {
			close(quitChan)
			return true, nil
		}

		if key.Code != keys.RuneKey || len(key.Runes) == 0 {
			return false, nil
		}

		switch key.Runes[0] {
		case 'q', 'Q':
			log.Info("Quitting...")
			close(quitChan)
			return true, nil

		case 'm', 'M':
			log.Info("Rebuilding...")
			if err := orch.Startup(context.Background()); err != nil {
				log.Warning("Rebuild failed: %v", err)
			} else {
				log.Info("Rebuild complete")
			}

		case 'v', 'V':
			verbose = !verbose
			if setter, ok := log.(interface{ SetVerbose(bool) }); ok {
				setter.SetVerbose(verbose)
			}
			log.Info("Verbose logging: %v", verbose)

		case 'o', 'O':
			url := fmt.Sprintf("http://localhost:%d", port)
			log.Info("Opening %s in browser...", url)
			if err := openBrowser(url); err != nil {
				log.Warning("Failed to open browser: %v", err)
			}

		case 'c', 'C':
			if clearer, ok := log.(interface{ Clear() }); ok {
				clearer.Clear()
				log.Info("Console cleared")
			}

		case 'h', 'H', '?':
			showHelp(log)
		}

		return false, nil
	})

	if err != nil {
		log.Warning("Keyboard input disabled: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to serve on (default 8787)")
	serveCmd.Flags().Int("debounce-ms", 0, "Watcher event-batching window in milliseconds")
	serveCmd.Flags().Int("batch-size", 0, "Max files processed concurrently during startup")
	serveCmd.Flags().String("env-file", "", "Project-relative path to the root environment file")
	serveCmd.Flags().StringSlice("watch-ignore", nil, "Glob patterns to ignore in the file watcher")

	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("serve.debounceMs", serveCmd.Flags().Lookup("debounce-ms"))
	_ = viper.BindPFlag("serve.batchSize", serveCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("serve.envFile", serveCmd.Flags().Lookup("env-file"))
	_ = viper.BindPFlag("serve.watchIgnore", serveCmd.Flags().Lookup("watch-ignore"))
}
