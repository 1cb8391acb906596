package main

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v69/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/repotrack/activity-api/client"
	"github.com/repotrack/activity-api/config"
	"github.com/repotrack/activity-api/controller"
	"github.com/repotrack/activity-api/logger"
	"github.com/repotrack/activity-api/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}

	// configure logger
	logger.Setup(*cfg)

	// setup github client
	// we do here and pass the client downward to easily improve tests with mock client
	githubApi := newGithubApiClient(*cfg)

	// optional outbound pacing limiter, shared by all upstream calls
	var limiter *rate.Limiter
	if cfg.Github.RequestsPerSecond > 0 {
		log.WithField("requestsPerSecond", cfg.Github.RequestsPerSecond).Debug("will pace outbound github requests")
		limiter = rate.NewLimiter(rate.Limit(cfg.Github.RequestsPerSecond), int(cfg.Github.RequestsPerSecond)+1)
	}

	// setup handlers and services
	githubClient := client.NewGithubClient(*cfg, githubApi, limiter)
	activityService := service.NewActivityService(*cfg, githubClient)
	apiController := controller.NewAPIController(*cfg, activityService)

	// setup server and define all routes
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &http.Server{
		Addr:    ":" + cfg.API.ListenPort,
		Handler: router,
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type, Content-Length, Accept-Encoding, Host, accept, Origin, Cache-Control, X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}),
	)

	api := router.Group("/v1/repositories")
	{
		api.GET("/activity/:username", apiController.GetRepositoryActivity)
		api.GET("/details/:owner/:repo", apiController.GetRepositoryDetails)
		api.GET("/health", apiController.Health)
		api.GET("/info", apiController.Info)
	}

	// start with configuration
	go func() {
		log.Info("server listening on port " + cfg.API.ListenPort)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("error while starting server")
		}

	}()

	// wait for interrupt signal to gracefully shut down the server with a timeout of 15 seconds.
	// kill default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("SIGINT, SIGTERM received, will shut down server ...")

	// the drain window starts once the signal arrives, not at startup
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	} else {
		log.Info("Application stopped gracefully !")
	}
}

// newGithubApiClient build the go-github client with the configured timeouts,
// base URL override, authorization token and optional request logging
func newGithubApiClient(cfg config.Config) *github.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: time.Duration(cfg.Github.ConnectTimeoutMs) * time.Millisecond,
		}).DialContext,
	}

	var roundTripper http.RoundTripper = transport
	if cfg.Github.EnableRequestLogging {
		roundTripper = loggingRoundTripper{next: transport}
	}

	httpClient := &http.Client{
		Timeout:   time.Duration(cfg.Github.ReadTimeoutMs) * time.Millisecond,
		Transport: roundTripper,
	}

	githubApi := github.NewClient(httpClient)

	if cfg.Github.ApiBaseUrl != "" {
		// go-github requires a trailing slash on the base URL
		if baseURL, err := url.Parse(strings.TrimSuffix(cfg.Github.ApiBaseUrl, "/") + "/"); err == nil {
			githubApi.BaseURL = baseURL
		} else {
			log.WithError(err).Warning("invalid github API base URL, keeping the default")
		}
	}

	if cfg.Github.Token != "" {
		log.Debug("will setup github client with authorization token")
		githubApi = githubApi.WithAuthToken(cfg.Github.Token)
	}

	return githubApi
}

// loggingRoundTripper log every upstream request and response status at debug level
type loggingRoundTripper struct {
	next http.RoundTripper
}

func (l loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	log.WithFields(log.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}).Debug("github request")

	resp, err := l.next.RoundTrip(req)

	if err == nil {
		log.WithFields(log.Fields{
			"method": req.Method,
			"url":    req.URL.String(),
			"status": resp.StatusCode,
		}).Debug("github response")
	}

	return resp, err
}
