package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/clip-board/internal/remote"
	"github.com/Guyuepp/clip-board/internal/repository"
	mysqlRepo "github.com/Guyuepp/clip-board/internal/repository/mysql"
	"github.com/Guyuepp/clip-board/internal/repository/mysql/model"
	myRedisCache "github.com/Guyuepp/clip-board/internal/repository/redis"
	"github.com/Guyuepp/clip-board/internal/rest"
	"github.com/Guyuepp/clip-board/internal/rest/middleware"
	"github.com/Guyuepp/clip-board/internal/rest/request"
	"github.com/Guyuepp/clip-board/internal/usecase/post"
	"github.com/Guyuepp/clip-board/internal/usecase/user"
)

const (
	defaultTimeout     = 30
	defaultAddress     = ":9090"
	defaultCacheDB     = 0
	defaultIdentityTTL = 300
	dbMaxRetry         = 10
	dbRetryIntervalSec = 2
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("no .env file, using environment")
	}
}

func main() {
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	//prepare database
	dbHost := os.Getenv("DATABASE_HOST")
	dbPort := os.Getenv("DATABASE_PORT")
	dbUser := os.Getenv("DATABASE_USER")
	dbPass := os.Getenv("DATABASE_PASS")
	dbName := os.Getenv("DATABASE_NAME")
	connection := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPass, dbHost, dbPort, dbName)
	val := url.Values{}
	val.Add("parseTime", "1")
	val.Add("loc", "UTC")
	dsn := fmt.Sprintf("%s?%s", connection, val.Encode())

	var (
		db  *gorm.DB
		err error
	)

	for i := range dbMaxRetry {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			logrus.Warnf("failed to open connection to database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
		} else {
			sqlDB, err := db.DB()
			if err != nil {
				logrus.Warnf("failed to get sql.DB from gorm.DB (attempt %d/%d): %v", i+1, dbMaxRetry, err)
				continue
			}
			err = sqlDB.Ping()
			if err == nil {
				break
			}
			logrus.Warnf("failed to ping database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
			_ = sqlDB.Close()
		}

		time.Sleep(dbRetryIntervalSec * time.Second)
	}

	if err != nil {
		log.Fatal("could not connect to database after retries:", err)
	}

	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal("got error when getting sql.DB from gorm.DB", err)
		}
		if err := sqlDB.Close(); err != nil {
			log.Fatal("got error when closing the DB connection", err)
		}
	}()

	if os.Getenv("DATABASE_AUTOMIGRATE") == "true" {
		if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.LikedPost{}, &model.SavedPost{}); err != nil {
			log.Fatal("failed to migrate schema: ", err)
		}
	}

	// prepare cache
	cacheHost := os.Getenv("CACHE_HOST")
	cachePort := os.Getenv("CACHE_PORT")
	cachePass := os.Getenv("CACHE_PASS")
	cacheDBStr := os.Getenv("CACHE_DB")
	cacheDB, err := strconv.Atoi(cacheDBStr)
	if err != nil {
		logrus.Info("failed to parse cacheDB, using default cacheDB")
		cacheDB = defaultCacheDB
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cacheHost + ":" + cachePort,
		Password: cachePass,
		DB:       cacheDB,
	})
	defer func() {
		err = client.Close()
		if err != nil {
			log.Fatal("got error when closing the cache connection", err)
		}
	}()

	_, err = client.Ping(context.Background()).Result()
	if err != nil {
		log.Fatal("failed to open connection to cache", err)
		return
	}

	// prepare gin
	if err := request.RegisterValidators(); err != nil {
		log.Fatal("failed to register validators: ", err)
	}
	route := gin.Default()
	var origins []string
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}
	route.Use(middleware.CORS(origins...))
	timeoutStr := os.Getenv("CONTEXT_TIMEOUT")
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil {
		logrus.Info("failed to parse timeout, using default timeout")
		timeout = defaultTimeout
	}
	timeoutContext := time.Duration(timeout) * time.Second
	route.Use(middleware.SetRequestContextWithTimeout(timeoutContext))

	// Prepare Repository
	userRepo := mysqlRepo.NewUserRepository(db)
	// posts: mysql behind a redis read-through cache
	postRepo := repository.NewPostRepository(mysqlRepo.NewPostRepository(db), myRedisCache.NewPostCache(client), 0)
	identities := myRedisCache.NewIdentityCache(client)

	identityTTL, err := strconv.Atoi(os.Getenv("IDENTITY_CACHE_TTL"))
	if err != nil {
		identityTTL = defaultIdentityTTL
	}

	// Build service Layer
	validator := remote.NewTwitchValidator(os.Getenv("TWITCH_VALIDATE_URL"), &http.Client{Timeout: timeoutContext})
	userSvc := user.NewService(userRepo, validator, identities, time.Duration(identityTTL)*time.Second)
	postSvc := post.NewService(postRepo, userRepo)
	postHandler := rest.NewPostHandler(postSvc)
	userHandler := rest.NewUserHandler()

	// Register routes
	authMiddleware := middleware.AuthMiddleware(userSvc)
	postHandler.Register(route, authMiddleware, middleware.OptionalAuthMiddleware(userSvc))
	userHandler.Register(route, authMiddleware)

	// Start Server
	address := os.Getenv("SERVER_ADDRESS")
	if address == "" {
		address = defaultAddress
	}
	srv := &http.Server{
		Addr:    address,
		Handler: route,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("Server is running on %s", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err) // nolint
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server exiting")
}
