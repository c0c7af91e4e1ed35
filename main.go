package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/config"
	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/lookup"
	"git.0xdad.com/tblyler/medilens/metrics"
	"git.0xdad.com/tblyler/medilens/navigation"
	"git.0xdad.com/tblyler/medilens/notify"
	"git.0xdad.com/tblyler/medilens/reminder"
	"git.0xdad.com/tblyler/medilens/scheduler"
	"git.0xdad.com/tblyler/medilens/server"
)

// configPathEnv points at an optional YAML config file
const configPathEnv = "MEDILENS_CONFIG"

func errLog(messages ...interface{}) {
	fmt.Fprintln(os.Stderr, messages...)
}

func log(messages ...interface{}) {
	fmt.Println(messages...)
}

func help() {
	errLog(`usage: medilens <command>

commands:
  serve                   run the reminder scheduler and the HTTP API
  reminder add            create a reminder from STDIN prompts
  reminder list           list reminders ordered by time
  reminder remove [id]    delete a reminder
  lookup <name>           look up a medicine by name and print it as JSON
  tick                    evaluate due reminders once and exit

configuration is read from the environment, or from the YAML file named by ` + configPathEnv + `
(overridable with ` + config.EnvPrefix + `* variables)`)
}

func loadConfig() (config.Config, error) {
	if path := os.Getenv(configPathEnv); path != "" {
		return config.LoadFile(path)
	}

	return &config.Env{}, nil
}

// openStore loads the reminders from badger, or keeps them in memory when no
// database path is configured
func openStore(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*reminder.Store, func() error, error) {
	badgerPath, err := cfg.BadgerPath()
	if errors.Is(err, config.ErrEnvVariableNotSet) {
		logger.Warn("no badger path configured, reminders will not survive a restart")

		store := reminder.NewStore(db.NewMemory(), logger, m)
		store.Load()

		return store, func() error { return nil }, nil
	}

	if err != nil {
		return nil, nil, err
	}

	b, err := db.NewBadger(badgerPath)
	if err != nil {
		return nil, nil, err
	}

	store := reminder.NewStore(b, logger, m)
	count := store.Load()
	logger.Info("reminders loaded", zap.Int("count", count), zap.String("path", badgerPath))

	return store, b.Close, nil
}

func newNotifier(cfg config.Config, logger *zap.Logger) scheduler.Notifier {
	sinks := notify.Multi{notify.NewLog(logger)}

	apiToken, tokenErr := cfg.PushoverAPIToken()
	userKey, userErr := cfg.PushoverUserKey()
	if tokenErr != nil || userErr != nil {
		logger.Warn("pushover is not configured, reminders are only logged")
		return sinks
	}

	device, _ := cfg.PushoverDevice()

	return append(sinks, notify.NewPushover(apiToken, userKey, device))
}

func newLookup(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*lookup.Client, error) {
	apiKey, err := cfg.GeminiAPIKey()
	if err != nil {
		return nil, err
	}

	model, err := cfg.GeminiModel()
	if err != nil {
		return nil, err
	}

	baseURL, err := cfg.GeminiBaseURL()
	if err != nil {
		return nil, err
	}

	return lookup.New(lookup.Config{
		APIKey:    apiKey,
		Model:     model,
		BaseURL:   baseURL,
		Grounding: true,
	}, logger, m), nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics, store *reminder.Store) error {
	client, err := newLookup(cfg, logger, m)
	if err != nil {
		return err
	}

	interval, err := cfg.CheckInterval()
	if err != nil {
		return err
	}

	addr, err := cfg.ListenAddr()
	if err != nil {
		return err
	}

	sched := scheduler.New(store, newNotifier(cfg, logger),
		scheduler.WithInterval(interval),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
	)

	err = sched.Start(ctx)
	if err != nil {
		return err
	}
	defer sched.Stop()

	notices := server.NewNotices()
	machine := navigation.New(client, store, notices, logger, m)

	srv := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(server.Options{
			Machine:   machine,
			Reminders: store,
			Notices:   notices,
			Metrics:   m,
			Logger:    logger,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting medilens", zap.String("addr", addr), zap.Int("reminders", store.Len()))
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")

	return nil
}

func prompt(inputScanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	inputScanner.Scan()

	return string(bytes.TrimSpace(inputScanner.Bytes()))
}

func parseDays(raw string) (db.Weekdays, error) {
	if raw == "" {
		return nil, nil
	}

	var days db.Weekdays
	for _, name := range strings.Split(raw, ",") {
		day, err := db.ParseWeekday(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}

		days = append(days, day)
	}

	return days, nil
}

func formatReminder(r db.Reminder) string {
	names := make([]string, 0, len(r.Days))
	for _, day := range r.Days {
		names = append(names, day.String()[:3])
	}

	return fmt.Sprintf("%s  %s  %s (%s)  [%s]", r.ID, r.Time, r.MedicineName, r.Dosage, strings.Join(names, ","))
}

func main() {
	lenArgs := len(os.Args)
	if lenArgs <= 1 {
		help()
		errLog("must supply at least one argument")
		os.Exit(1)
	}

	err := func() error {
		inputScanner := bufio.NewScanner(os.Stdin)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		level, err := cfg.LogLevel()
		if err != nil {
			return err
		}

		logger, err := logging.New(level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch os.Args[1] {
		case "serve":
			store, closeDB, err := openStore(cfg, logger, m)
			if err != nil {
				return err
			}
			defer closeDB()

			return serve(ctx, cfg, logger, m, store)

		case "tick":
			store, closeDB, err := openStore(cfg, logger, m)
			if err != nil {
				return err
			}
			defer closeDB()

			fired := scheduler.New(store, newNotifier(cfg, logger),
				scheduler.WithLogger(logger),
				scheduler.WithMetrics(m),
			).Tick(ctx)

			log("fired", len(fired), "reminders")

		case "lookup":
			if lenArgs < 3 {
				return errors.New("must supply a medicine name to the lookup command")
			}

			client, err := newLookup(cfg, logger, m)
			if err != nil {
				return err
			}

			rec, err := client.LookupByName(ctx, strings.Join(os.Args[2:], " "))
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", rec.Name, err)
			}

			log(string(out))

		case "reminder":
			if lenArgs < 3 {
				return errors.New("must supply an argument to the reminder command")
			}

			store, closeDB, err := openStore(cfg, logger, m)
			if err != nil {
				return err
			}
			defer closeDB()

			switch os.Args[2] {
			case "add":
				name := prompt(inputScanner, "medicine name: ")
				if name == "" {
					return fmt.Errorf("failed to get medicine name from STDIN prompt: %w", inputScanner.Err())
				}

				hhmm := prompt(inputScanner, "time (HH:MM): ")
				if hhmm == "" {
					return fmt.Errorf("failed to get time from STDIN prompt: %w", inputScanner.Err())
				}

				dosage := prompt(inputScanner, "dosage ["+reminder.DefaultDosage+"]: ")

				days, err := parseDays(prompt(inputScanner, "days, comma separated [every day]: "))
				if err != nil {
					return err
				}

				r, err := store.Add(reminder.Draft{
					MedicineName: name,
					Time:         hhmm,
					Dosage:       dosage,
					Days:         days,
				})
				if err != nil {
					return fmt.Errorf("failed to add reminder for %s: %w", name, err)
				}

				log("created reminder id", r.ID)

			case "list":
				for _, r := range store.List() {
					log(formatReminder(r))
				}

			case "remove":
				var id string
				if lenArgs > 3 {
					id = os.Args[3]
				} else {
					id = prompt(inputScanner, "reminder id: ")
				}

				if !store.Remove(id) {
					return fmt.Errorf("reminder %s does not exist", id)
				}

				log("removed reminder id", id)

			default:
				return fmt.Errorf("unknown reminder command %s", os.Args[2])
			}

		case "help", "-h", "--help":
			help()

		default:
			help()
			return fmt.Errorf("unknown command %s", os.Args[1])
		}

		return nil
	}()

	if err != nil {
		errLog(err.Error())
		os.Exit(1)
	}
}
