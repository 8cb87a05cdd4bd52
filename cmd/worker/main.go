// Package main is the operational entry point for the attendance system.
//
// It wires the partition router, the cohort promotion engine, attendance
// consolidation and the notification dedup gate over PostgreSQL and Redis,
// and exposes them as subcommands for schedulers and operators:
//
//	worker record-attendance -stream BCA -period 3 -subject Mathematics -day 2026-03-10 -present R001,R002
//	worker dispatch -stream BCA -period 3 -day 2026-03-10
//	worker promote -stream BCA
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MLAAHL/Smart-Attendance-sub001/config"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/application/command"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/application/eventhandler"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/application/query"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/infrastructure/external/gateway"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/infrastructure/messaging"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/infrastructure/persistence/postgres"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/infrastructure/persistence/redis"
	"github.com/MLAAHL/Smart-Attendance-sub001/pkg/logger"
	"github.com/MLAAHL/Smart-Attendance-sub001/pkg/timeutil"
)

func main() {
	// Best-effort: a missing .env is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a subcommand is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:     cfg.Observability.LogLevel,
		Format:    logger.Format(cfg.Observability.LogFormat),
		AddSource: cfg.Observability.AddSource,
	})
	slog.SetDefault(log)

	app, cleanup, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	return app.execute(ctx, args[0], args[1:])
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITION
// ══════════════════════════════════════════════════════════════════════════════

// app holds the wired command and query handlers.
type app struct {
	cfg *config.Config
	log *slog.Logger

	registerStudent *command.RegisterStudentHandler
	updateStudent   *command.UpdateStudentHandler
	subjects        *command.SubjectHandler
	recordAtt       *command.RecordAttendanceHandler
	correctAtt      *command.CorrectAttendanceHandler
	promote         *command.PromoteCohortHandler
	dispatch        *command.DispatchNotificationsHandler
	reprovision     *command.ReprovisionPartitionHandler

	consolidate      *query.ConsolidateAbsencesHandler
	roster           *query.GetRosterHandler
	migrationHistory *query.GetMigrationHistoryHandler
	dispatchReport   *query.GetDispatchReportHandler
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Organization-unit table
	table, err := config.LoadOrgUnits(cfg.App.OrgUnitsPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to load org units: %w", err)
	}

	// PostgreSQL
	log.Info("connecting to database")
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers = append(closers, conn.Close)

	if err := conn.EnsureBaseTables(ctx); err != nil {
		return nil, cleanup, fmt.Errorf("failed to ensure base tables: %w", err)
	}

	router := postgres.NewRouter(conn, table, postgres.RouterConfig{
		AllowReprovision: cfg.Database.AllowReprovision,
	})
	studentStore := postgres.NewStudentStore(conn)
	subjectStore := postgres.NewSubjectStore(conn)
	attendanceStore := postgres.NewAttendanceStore(conn)
	notificationLog := postgres.NewNotificationLog(conn)
	migrationLog := postgres.NewMigrationLog(conn)
	txRunner := postgres.NewPromotionTxRunner(conn)

	// Redis (optional: cache and distributed lock degrade to no-ops)
	var (
		summaryCache  *redis.SummaryCache
		promotionLock *redis.PromotionLock
	)
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("redis unavailable, running without cache and distributed lock",
				slog.String("error", err.Error()))
		} else {
			closers = append(closers, func() { _ = cache.Close() })
			summaryCache = redis.NewSummaryCache(cache)
			promotionLock = redis.NewPromotionLock(cache)
			log.Info("redis connection established")
		}
	}

	// Notification gateway
	notifyGateway := notificationGateway(cfg, log)

	// Event bus with cache invalidation on attendance writes
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	closers = append(closers, func() { _ = bus.Close() })

	if summaryCache != nil {
		invalidation := eventhandler.NewOnAttendanceRecorded(summaryCache, log)
		if err := invalidation.Register(bus.Subscribe); err != nil {
			return nil, cleanup, fmt.Errorf("failed to register event handlers: %w", err)
		}
	}

	consolidate := query.NewConsolidateAbsencesHandler(
		router, studentStore, subjectStore, attendanceStore, cacheOrNil(summaryCache), log)

	dispatch := command.NewDispatchNotificationsHandler(consolidate, notificationLog, notifyGateway, bus, log)
	dispatch.SetMaxConcurrentSends(cfg.Dispatch.MaxConcurrentSends)

	a := &app{
		cfg: cfg,
		log: log,

		registerStudent: command.NewRegisterStudentHandler(table, router, studentStore, bus),
		updateStudent:   command.NewUpdateStudentHandler(router, studentStore),
		subjects:        command.NewSubjectHandler(table, router, subjectStore),
		recordAtt:       command.NewRecordAttendanceHandler(router, studentStore, subjectStore, attendanceStore, bus),
		correctAtt:      command.NewCorrectAttendanceHandler(router, studentStore, attendanceStore, bus),
		promote:         command.NewPromoteCohortHandler(table, router, txRunner, lockOrNil(promotionLock), bus, log),
		dispatch:        dispatch,
		reprovision:     command.NewReprovisionPartitionHandler(router, log),

		consolidate:      consolidate,
		roster:           query.NewGetRosterHandler(router, studentStore, subjectStore),
		migrationHistory: query.NewGetMigrationHistoryHandler(migrationLog),
		dispatchReport:   query.NewGetDispatchReportHandler(notificationLog),
	}
	return a, cleanup, nil
}

// cacheOrNil avoids handing the handler a non-nil interface wrapping a nil
// pointer.
func cacheOrNil(c *redis.SummaryCache) query.SummaryCache {
	if c == nil {
		return nil
	}
	return c
}

func lockOrNil(l *redis.PromotionLock) command.StreamLock {
	if l == nil {
		return nil
	}
	return l
}

// notificationGateway selects the provider client, or the console gateway
// when no provider is configured.
func notificationGateway(cfg *config.Config, log *slog.Logger) notification.Gateway {
	if cfg.Gateway.BaseURL == "" {
		log.Warn("no notification provider configured, using console gateway")
		return gateway.NewConsoleGateway(log)
	}
	gwCfg := gateway.DefaultConfig(cfg.Gateway.BaseURL)
	gwCfg.APIKey = cfg.Gateway.APIKey
	gwCfg.Timeout = cfg.Gateway.RequestTimeout
	gwCfg.RequestsPerSecond = cfg.Gateway.RequestsPerSecond
	gwCfg.Burst = cfg.Gateway.Burst
	gwCfg.Logger = log
	return gateway.NewClient(gwCfg)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBCOMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *app) execute(ctx context.Context, name string, args []string) error {
	switch name {
	case "register-student":
		return a.runRegisterStudent(ctx, args)
	case "deactivate-student":
		return a.runDeactivateStudent(ctx, args)
	case "update-guardian":
		return a.runUpdateGuardian(ctx, args)
	case "create-subject":
		return a.runCreateSubject(ctx, args)
	case "deactivate-subject":
		return a.runDeactivateSubject(ctx, args)
	case "record-attendance":
		return a.runRecordAttendance(ctx, args)
	case "correct-attendance":
		return a.runCorrectAttendance(ctx, args)
	case "consolidate":
		return a.runConsolidate(ctx, args)
	case "dispatch":
		return a.runDispatch(ctx, args)
	case "promote":
		return a.runPromote(ctx, args)
	case "roster":
		return a.runRoster(ctx, args)
	case "migration-history":
		return a.runMigrationHistory(ctx, args)
	case "dispatch-report":
		return a.runDispatchReport(ctx, args)
	case "reprovision":
		return a.runReprovision(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", name)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: worker <subcommand> [flags]

subcommands:
  register-student     add a student to a (stream, period) roster
  deactivate-student   mark a student inactive
  update-guardian      replace a student's guardian contact
  create-subject       add a subject to a (stream, period)
  deactivate-subject   retire a subject from further attendance
  record-attendance    write one day's attendance for a subject
  correct-attendance   flip one student's mark on an existing record
  consolidate          compute a day's absence summaries
  dispatch             send guardian notifications for a day's absences
  promote              move a stream's cohorts up one period
  roster               list students and subjects of a (stream, period)
  migration-history    list a student's promotion history
  dispatch-report      show the dispatch log entry for a day
  reprovision          drop and recreate one partition (destructive)`)
}

func (a *app) runRegisterStudent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register-student", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name, e.g. BCA")
	period := fs.Int("period", 0, "academic period")
	id := fs.String("id", "", "external student ID")
	name := fs.String("name", "", "display name")
	language := fs.String("language", "", "declared language (optional)")
	guardian := fs.String("guardian", "", "guardian phone number")
	_ = fs.Parse(args)

	result, err := a.registerStudent.Handle(ctx, command.RegisterStudentCommand{
		ExternalID: *id,
		Name:       *name,
		Stream:     shared.Stream(*stream),
		Period:     shared.Period(*period),
		Language:   shared.LanguageTag(*language),
		Guardian:   *guardian,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func (a *app) runDeactivateStudent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deactivate-student", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	id := fs.String("id", "", "external student ID")
	_ = fs.Parse(args)

	deactivated, err := a.updateStudent.HandleDeactivate(ctx, command.DeactivateStudentCommand{
		Stream:     shared.Stream(*stream),
		Period:     shared.Period(*period),
		ExternalID: *id,
	})
	if err != nil {
		return err
	}
	return printJSON(deactivated)
}

func (a *app) runUpdateGuardian(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-guardian", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	id := fs.String("id", "", "external student ID")
	guardian := fs.String("guardian", "", "new guardian phone number")
	_ = fs.Parse(args)

	updated, err := a.updateStudent.HandleUpdateGuardian(ctx, command.UpdateGuardianCommand{
		Stream:     shared.Stream(*stream),
		Period:     shared.Period(*period),
		ExternalID: *id,
		Guardian:   *guardian,
	})
	if err != nil {
		return err
	}
	return printJSON(updated)
}

func (a *app) runCreateSubject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-subject", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	name := fs.String("name", "", "subject name")
	typ := fs.String("type", "core", "subject type: core or language")
	language := fs.String("language", "", "language tag for language subjects")
	_ = fs.Parse(args)

	created, err := a.subjects.HandleCreate(ctx, command.CreateSubjectCommand{
		Name:     *name,
		Stream:   shared.Stream(*stream),
		Period:   shared.Period(*period),
		Type:     subject.Type(*typ),
		Language: shared.LanguageTag(*language),
	})
	if err != nil {
		return err
	}
	return printJSON(created)
}

func (a *app) runDeactivateSubject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deactivate-subject", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	name := fs.String("name", "", "subject name")
	_ = fs.Parse(args)

	retired, err := a.subjects.HandleDeactivate(ctx, command.DeactivateSubjectCommand{
		Name:   *name,
		Stream: shared.Stream(*stream),
		Period: shared.Period(*period),
	})
	if err != nil {
		return err
	}
	return printJSON(retired)
}

func (a *app) runRecordAttendance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record-attendance", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	subj := fs.String("subject", "", "subject name")
	day := fs.String("day", timeutil.Now().Format(timeutil.FormatDate), "day (YYYY-MM-DD)")
	present := fs.String("present", "", "comma-separated present student IDs")
	overwrite := fs.Bool("overwrite", false, "replace an existing record for the day")
	_ = fs.Parse(args)

	result, err := a.recordAtt.Handle(ctx, command.RecordAttendanceCommand{
		Stream:     shared.Stream(*stream),
		Period:     shared.Period(*period),
		Subject:    *subj,
		Day:        shared.Day(*day),
		PresentIDs: splitIDs(*present),
		Overwrite:  *overwrite,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func (a *app) runCorrectAttendance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("correct-attendance", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	subj := fs.String("subject", "", "subject name")
	day := fs.String("day", "", "day (YYYY-MM-DD)")
	id := fs.String("id", "", "external student ID")
	present := fs.Bool("present", false, "the corrected state for the student")
	_ = fs.Parse(args)

	record, err := a.correctAtt.Handle(ctx, command.CorrectAttendanceCommand{
		Stream:     shared.Stream(*stream),
		Period:     shared.Period(*period),
		Subject:    *subj,
		Day:        shared.Day(*day),
		ExternalID: *id,
		Present:    *present,
	})
	if err != nil {
		return err
	}
	return printJSON(record)
}

func (a *app) runConsolidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	day := fs.String("day", timeutil.Now().Format(timeutil.FormatDate), "day (YYYY-MM-DD)")
	skipCache := fs.Bool("skip-cache", false, "bypass the summary cache")
	_ = fs.Parse(args)

	summaries, err := a.consolidate.Handle(ctx, query.ConsolidateAbsencesQuery{
		Stream:    shared.Stream(*stream),
		Period:    shared.Period(*period),
		Day:       shared.Day(*day),
		SkipCache: *skipCache,
	})
	if err != nil {
		return err
	}
	return printJSON(summaries)
}

func (a *app) runDispatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dispatch", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	day := fs.String("day", timeutil.Now().Format(timeutil.FormatDate), "day (YYYY-MM-DD)")
	force := fs.Bool("force", false, "override a prior dispatch and re-send")
	_ = fs.Parse(args)

	if a.cfg.Dispatch.EnforceNotifyWindow && !timeutil.IsSafeNotificationTime(timeutil.Now()) {
		return fmt.Errorf("outside the guardian notification window (%02d:00-%02d:00 IST); next window starts %s",
			timeutil.NotifyWindowStart, timeutil.NotifyWindowEnd,
			timeutil.NextSafeNotificationTime(timeutil.Now()).Format(timeutil.FormatDateTime))
	}

	report, err := a.dispatch.Handle(ctx, command.DispatchNotificationsCommand{
		Stream: shared.Stream(*stream),
		Period: shared.Period(*period),
		Day:    shared.Day(*day),
		Force:  *force,
	})
	if err != nil {
		return err
	}
	if report.AlreadyDispatched {
		a.log.Info("already dispatched, nothing sent",
			slog.String("day", *day),
			slog.String("batch_id", report.Entry.BatchID))
	}
	return printJSON(report)
}

func (a *app) runPromote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("promote", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	batch := fs.String("batch", "", "batch ID (optional, generated when empty)")
	_ = fs.Parse(args)

	result, err := a.promote.Handle(ctx, command.PromoteCohortCommand{
		Stream:  shared.Stream(*stream),
		BatchID: *batch,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func (a *app) runRoster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("roster", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	_ = fs.Parse(args)

	roster, err := a.roster.Handle(ctx, query.GetRosterQuery{
		Stream: shared.Stream(*stream),
		Period: shared.Period(*period),
	})
	if err != nil {
		return err
	}
	return printJSON(roster)
}

func (a *app) runMigrationHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migration-history", flag.ExitOnError)
	id := fs.String("id", "", "external student ID")
	_ = fs.Parse(args)

	events, err := a.migrationHistory.Handle(ctx, query.GetMigrationHistoryQuery{
		ExternalID: *id,
	})
	if err != nil {
		return err
	}
	return printJSON(events)
}

func (a *app) runDispatchReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dispatch-report", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	day := fs.String("day", "", "day (YYYY-MM-DD)")
	_ = fs.Parse(args)

	entry, err := a.dispatchReport.Handle(ctx, query.GetDispatchReportQuery{
		Stream: shared.Stream(*stream),
		Period: shared.Period(*period),
		Day:    shared.Day(*day),
	})
	if err != nil {
		return err
	}
	return printJSON(entry)
}

func (a *app) runReprovision(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reprovision", flag.ExitOnError)
	stream := fs.String("stream", "", "stream name")
	period := fs.Int("period", 0, "academic period")
	kind := fs.String("kind", "", "partition kind: students, subjects or attendance")
	subj := fs.String("subject", "", "subject name (attendance partitions)")
	_ = fs.Parse(args)

	return a.reprovision.Handle(ctx, command.ReprovisionPartitionCommand{
		Key: partition.Key{
			Stream:  shared.Stream(*stream),
			Period:  shared.Period(*period),
			Kind:    partition.Kind(*kind),
			Subject: *subj,
		},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func splitIDs(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
