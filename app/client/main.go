package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/feed"
	"github.com/Guyuepp/clip-board/internal/feedcache"
	"github.com/Guyuepp/clip-board/internal/remote"
	myRedis "github.com/Guyuepp/clip-board/internal/repository/redis"
	"github.com/Guyuepp/clip-board/internal/tui"
	"github.com/Guyuepp/clip-board/internal/usecase/mutation"
	"github.com/Guyuepp/clip-board/internal/usecase/session"
)

const (
	defaultTimeout      = 10
	defaultAPIURL       = "http://localhost:9090"
	defaultCacheDB      = 0
	defaultCacheEntries = 32
	defaultLogFile      = "clipboard.log"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
}

func main() {
	loginToken := flag.String("login", "", "store a Twitch access token and exit")
	logout := flag.Bool("logout", false, "forget the stored session and exit")
	flag.Parse()

	// the terminal belongs to the UI, logs go to a file
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = defaultLogFile
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Fatal("failed to open log file: ", err)
	}
	defer f.Close()
	logrus.SetOutput(f)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	// prepare token store
	cacheDB, err := strconv.Atoi(os.Getenv("CACHE_DB"))
	if err != nil {
		cacheDB = defaultCacheDB
	}
	client := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("CACHE_HOST") + ":" + os.Getenv("CACHE_PORT"),
		Password: os.Getenv("CACHE_PASS"),
		DB:       cacheDB,
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to open connection to token store: ", err)
	}

	device := os.Getenv("DEVICE_ID")
	if device == "" {
		device, _ = os.Hostname()
	}
	store := myRedis.NewTokenStore(client, device)

	timeout, err := strconv.Atoi(os.Getenv("CONTEXT_TIMEOUT"))
	if err != nil {
		timeout = defaultTimeout
	}
	requestTimeout := time.Duration(timeout) * time.Second

	entries, err := strconv.Atoi(os.Getenv("FEED_CACHE_ENTRIES"))
	if err != nil {
		entries = defaultCacheEntries
	}
	cache := feedcache.New(entries)

	httpClient := &http.Client{Timeout: requestTimeout}
	validator := remote.NewTwitchValidator(os.Getenv("TWITCH_VALIDATE_URL"), httpClient)

	var program *tea.Program
	sessions := session.NewService(store, validator, cache, func() {
		if program != nil {
			program.Send(tui.ReloadMsg{})
		}
	})

	switch {
	case *loginToken != "":
		if err := sessions.Login(ctx, *loginToken); err != nil {
			log.Fatal("login failed: ", err)
		}
		log.Println("logged in")
		return
	case *logout:
		if err := sessions.Logout(ctx); err != nil {
			log.Fatal("logout failed: ", err)
		}
		log.Println("logged out")
		return
	}

	if _, err := sessions.Check(ctx); err != nil {
		logrus.Warnf("could not check stored session: %v", err)
	}

	apiURL := os.Getenv("CLIPBOARD_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	posts := remote.NewPostClient(apiURL, sessions, httpClient)

	// Twitch status needs an application client id
	var twitchUsers domain.TwitchUsers
	if clientID := os.Getenv("TWITCH_CLIENT_ID"); clientID != "" {
		twitchUsers = remote.NewTwitchHelix(os.Getenv("TWITCH_HELIX_URL"), clientID, os.Getenv("TWITCH_BROADCASTER_ID"), httpClient)
	}
	// zero falls back to session.DefaultViewerTTL
	viewerTTL, _ := strconv.Atoi(os.Getenv("VIEWER_TTL"))
	sessions.WithAccounts(posts, twitchUsers, time.Duration(viewerTTL)*time.Second)
	loader := feed.NewLoader(cache, posts, sessions, requestTimeout)
	mutations := mutation.NewService(cache, posts, sessions, requestTimeout)

	prefs, err := sessions.Preferences(ctx)
	if err != nil {
		logrus.Warnf("failed to load preferences: %v", err)
	}

	program = tea.NewProgram(tui.New(ctx, loader, mutations, sessions, prefs), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		log.Fatal("ui error: ", err)
	}
}
