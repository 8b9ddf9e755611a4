package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crewdesk/internal/bot"
	"crewdesk/internal/config"
	"crewdesk/internal/logger"
	"crewdesk/internal/notify"
	"crewdesk/internal/repository"
	"crewdesk/internal/server"
	"crewdesk/internal/service"
)

var rootCmd = &cobra.Command{
	Use:          "crewdesk",
	Short:        "crewdesk - recurring team tasks with proof review and rewards",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the scheduled pipeline",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate today's tasks from active schedules once",
	RunE:  runGenerate,
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run extension, generation and elimination once",
	RunE:  runPipeline,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token <member-id>",
	Short: "Issue an API token for a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var (
	configPath string
	tokenTTL   time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (yaml, json or toml)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(serveCmd, generateCmd, pipelineCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	api     *tgbotapi.BotAPI
	members *repository.MemberRepository

	memberSvc   *service.MemberService
	scheduleSvc *service.ScheduleService
	taskSvc     *service.TaskService
	rewardSvc   *service.RewardService
	reminderSvc *service.ReminderService
	engine      *service.Engine
	clock       service.Clock
}

func newApp(withTelegram bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	members := repository.NewMemberRepository(db)
	schedules := repository.NewScheduleRepository(db)
	tasks := repository.NewTaskRepository(db)
	rewards := repository.NewRewardRepository(db)

	a := &app{cfg: cfg, log: log, db: db, members: members, clock: service.NewClock(cfg.Location)}

	var notifier notify.Notifier = notify.NewLog(log)
	if withTelegram && cfg.TelegramToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		a.api = api
		notifier = notify.Multi{notify.NewLog(log), notify.NewTelegram(api, members, log)}
	}

	a.memberSvc = service.NewMemberService(members, log)
	a.scheduleSvc = service.NewScheduleService(schedules, members, a.clock, log)
	a.taskSvc = service.NewTaskService(tasks, rewards, members, a.clock, log)
	a.rewardSvc = service.NewRewardService(tasks, rewards, members, notifier, a.clock, cfg.RewardPoints, log)
	a.reminderSvc = service.NewReminderService(tasks, rewards)
	a.engine = service.NewEngine(schedules, tasks, members, notifier, a.clock, log)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	for _, telegramID := range a.cfg.AdminTelegram {
		if _, err := a.memberSvc.EnsureAdmin(ctx, telegramID); err != nil {
			return fmt.Errorf("seed admin %d: %w", telegramID, err)
		}
	}

	var telegramBot *bot.Bot
	if a.api != nil {
		codes, err := bot.NewCodec()
		if err != nil {
			return fmt.Errorf("codes: %w", err)
		}
		telegramBot = bot.New(a.api, bot.Services{
			Members:   a.memberSvc,
			Tasks:     a.taskSvc,
			Rewards:   a.rewardSvc,
			Reminders: a.reminderSvc.WithTaskLabel(codes.Encode),
			Engine:    a.engine,
			Clock:     a.clock,
		}, codes, a.log)
	} else {
		a.log.Warn("telegram token is not set, the bot is disabled")
	}

	scheduler := service.NewSchedulerService(a.cfg.Location, a.log)
	pipeline := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, err := a.engine.RunPipeline(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("pipeline run failed", zap.Error(err))
		}
	}
	if _, err := scheduler.ScheduleDaily(a.cfg.GenerateAt, pipeline); err != nil {
		return fmt.Errorf("schedule generation: %w", err)
	}
	if a.cfg.PollInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.PollInterval, pipeline); err != nil {
			return fmt.Errorf("schedule pipeline: %w", err)
		}
	}
	if telegramBot != nil && a.cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("daily reports failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Services{
		Members:   a.memberSvc,
		Schedules: a.scheduleSvc,
		Tasks:     a.taskSvc,
		Rewards:   a.rewardSvc,
		Engine:    a.engine,
	}, server.Options{JWTSecret: a.cfg.JWTSecret, CORSOrigins: a.cfg.CORSOrigins}, a.log)
	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	if telegramBot != nil {
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("bot: %w", err)
			}
		}()
	}

	a.log.Info("crewdesk started")
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	a.log.Info("shutdown complete")
	return runErr
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.engine.GenerateNow(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, summary)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.engine.RunPipeline(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := repository.Migrate(a.db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid member id %q", args[0])
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	member, err := a.memberSvc.Get(cmd.Context(), uint(id))
	if err != nil {
		return err
	}
	token, err := server.NewAuth(a.cfg.JWTSecret).Issue(*member, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func printJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
