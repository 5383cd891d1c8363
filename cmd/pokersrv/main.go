package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vctt94/bisonbotkit/logging"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/hub"
	"github.com/llmholdem/server/internal/httpapi"
	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/review"
	"github.com/llmholdem/server/internal/session"
	"github.com/llmholdem/server/internal/store"
)

func main() {
	var (
		dbPath       string
		listenAddr   string
		jwtSecret    string
		jwtExpiryHrs int
		llmDefault   string
		corsOrigins  string
		debugLevel   string
	)
	flag.StringVar(&dbPath, "db", envOr("POKER_DB_PATH", ""), "Path to SQLite database file (created if missing)")
	flag.StringVar(&listenAddr, "listen", envOr("POKER_LISTEN_ADDR", "127.0.0.1:8080"), "Address to listen on")
	flag.StringVar(&jwtSecret, "jwt-secret", envOr("POKER_JWT_SECRET", ""), "HMAC secret for signing session tokens")
	flag.IntVar(&jwtExpiryHrs, "jwt-expiry-hours", envIntOr("POKER_JWT_EXPIRY_HOURS", 24), "Token expiry in hours")
	flag.StringVar(&llmDefault, "llm-default-key", envOr("POKER_LLM_DEFAULT_KEY", ""), "Environment-default LLM API key")
	flag.StringVar(&corsOrigins, "cors-origins", envOr("POKER_CORS_ORIGINS", ""), "Comma-separated CORS allowlist (empty = allow all)")
	flag.StringVar(&debugLevel, "debuglevel", envOr("POKER_DEBUG_LEVEL", "info"), "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "llmholdem.sqlite")
	}
	if jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "POKER_JWT_SECRET (or -jwt-secret) is required")
		os.Exit(1)
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: debugLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("pokersrv")

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	authSvc := auth.NewService(st, []byte(jwtSecret), time.Duration(jwtExpiryHrs)*time.Hour)

	llmFactory := func(key string) (llmclient.Client, bool) {
		if key == "" {
			return nil, false
		}
		return llmclient.NewOpenAI(key, "", ""), true
	}

	reviewSvc := review.NewService(st, llmDefault, review.LLMFactory(llmFactory), logBackend.Logger("review"))

	var origins []string
	if corsOrigins != "" {
		origins = strings.Split(corsOrigins, ",")
	}

	h := hub.NewHub(authSvc, st, reviewSvc, llmDefault, session.LLMFactory(llmFactory), origins, logBackend.Logger("hub"))
	apiSrv := httpapi.NewServer(authSvc, st, h, reviewSvc, logBackend.Logger("httpapi"))

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: apiSrv.Router(origins),
	}

	log.Infof("listening on %s", listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
