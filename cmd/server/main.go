package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account-service/backend/internal/audit"
	auditrepo "account-service/backend/internal/audit/repository"
	"account-service/backend/internal/config"
	"account-service/backend/internal/db"
	"account-service/backend/internal/devotp"
	devotphandler "account-service/backend/internal/devotp/handler"
	healthhandler "account-service/backend/internal/health/handler"
	identityhandler "account-service/backend/internal/identity/handler"
	identityservice "account-service/backend/internal/identity/service"
	"account-service/backend/internal/kv"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/security"
	"account-service/backend/internal/server"
	"account-service/backend/internal/server/middleware"
	sessionrepo "account-service/backend/internal/session/repository"
	sessionservice "account-service/backend/internal/session/service"
	"account-service/backend/internal/sessioncookie"
	"account-service/backend/internal/telemetry"
	telemetryotel "account-service/backend/internal/telemetry/otel"
	userrepo "account-service/backend/internal/user/repository"
	verificationdomain "account-service/backend/internal/verification/domain"
	verificationrepo "account-service/backend/internal/verification/repository"
	verificationservice "account-service/backend/internal/verification/service"
	"account-service/backend/internal/verification/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	env := cfg.Env
	log := logger.New(env.LogLevel, env.IsProduction())

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    env.OTLPEndpoint,
		ServiceName: "account-service",
		Insecure:    env.OTLPInsecure,
	})
	if err != nil {
		log.Fatal("telemetry", "error", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatal("metrics", "error", err)
	}
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	if env.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(env.DatabaseURL)
	if err != nil {
		log.Fatal("db", "error", err)
	}
	defer conn.Close()

	rdb, err := kv.Open(kv.Options{Addr: env.RedisAddr, Password: env.RedisPassword, DB: env.RedisDB})
	if err != nil {
		log.Fatal("redis", "error", err)
	}
	defer rdb.Close()

	tokens := security.NewTokenIssuer(env.JWTSecretKey, env.TokenTTL())
	authority := sessionservice.NewAuthority(tokens, sessionrepo.NewRedisLedger(rdb), metrics, log)

	var (
		sender   sms.Sender
		devCodes *devotphandler.Handler
	)
	if env.DevVerificationCodes && !env.IsProduction() {
		store := devotp.NewMemoryStore()
		sender = sms.NewDevSender(store)
		devCodes = devotphandler.NewHandler(store)
	} else if env.SMSProvider == config.SMSProviderGateway {
		sender = sms.NewGatewayClient(env.SMSGatewayURL, env.SMSAccessKeyID, env.SMSAccessKeySecret, env.SMSSignName)
	} else {
		aliyun, err := sms.NewAliyunClient(env.SMSAliyunEndpoint, env.SMSAccessKeyID, env.SMSAccessKeySecret, env.SMSSignName)
		if err != nil {
			log.Fatal("sms", "error", err)
		}
		sender = aliyun
	}
	templates := sms.Templates{
		verificationdomain.PurposeRegister: env.SMSTemplateRegister,
		verificationdomain.PurposeLogin:    env.SMSTemplateLogin,
		verificationdomain.PurposeReset:    env.SMSTemplateReset,
	}
	broker := verificationservice.NewBroker(
		verificationrepo.NewRedisCodeStore(rdb), sender, templates,
		verificationservice.Options{SingleUse: env.VerificationSingleUse, LogCodes: !env.IsProduction()},
		metrics, log,
	)

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientIPFromContext, emitter, log)
	points := cfg.File.UserConfig.UserPoints
	accounts := identityservice.NewAccountService(
		userrepo.NewPostgresRepository(conn),
		security.NewHasher(env.BcryptCost),
		authority,
		broker,
		auditLogger,
		identityservice.Points{Init: int64(points.InitPoints), Invite: int64(points.InvitePoints)},
		log,
	)

	cookies := sessioncookie.PolicyFromConfig(&env)
	handler := server.NewRouter(server.Deps{
		Accounts: identityhandler.NewHandler(accounts, cookies),
		Auth:     authority,
		Cookies:  cookies,
		Health: healthhandler.NewHandler(map[string]healthhandler.Pinger{
			"postgres": conn,
			"redis":    healthhandler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}, log),
		DevCodes: devCodes,
		Emitter:  emitter,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              env.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", "addr", env.HTTPAddr, "env", env.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	if env.OTLPEndpoint != "" {
		// Let in-flight async emits finish before the log exporter closes.
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", "error", err)
	}
	log.Info("HTTP server stopped")
}
