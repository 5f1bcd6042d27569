package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/trident/service-board-go/internal/identity"
	issuerepo "github.com/ovaphlow/trident/service-board-go/internal/issue/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/project"
	projectrepo "github.com/ovaphlow/trident/service-board-go/internal/project/repo"
	"github.com/ovaphlow/trident/service-board-go/internal/router"
	sprintrepo "github.com/ovaphlow/trident/service-board-go/internal/sprint/repo"
	userrepo "github.com/ovaphlow/trident/service-board-go/internal/user/repo"
	"github.com/ovaphlow/trident/service-board-go/pkg/database"
	"github.com/ovaphlow/trident/service-board-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-board-go")

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// ensure schema, parents before children so the FKs resolve
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := userrepo.NewUserRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := projectrepo.NewProjectRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure projects table: %v", err)
	}
	if err := sprintrepo.NewSprintRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure sprints table: %v", err)
	}
	if err := issuerepo.NewIssueRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure issues table: %v", err)
	}

	// identity collaborators
	parser, err := identity.NewTokenParserFromEnv()
	if err != nil {
		sugar.Fatalf("session token parser: %v", err)
	}
	httpProvider, err := identity.NewHTTPProviderFromEnv()
	if err != nil {
		sugar.Fatalf("identity provider: %v", err)
	}
	provider := identity.NewResilientProvider(httpProvider)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Info("service is running; press Ctrl+C to stop")

	// mount http server
	handler := router.RegisterRoutes(sugar, db, provider, parser, project.ConfigFromEnv())
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8433"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if err := db.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
