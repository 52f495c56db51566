package main

import (
	"context"
	"errors"
	"hash/maphash"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
	"golang.org/x/sync/errgroup"

	minefield "github.com/akoreshkov/minefield-server"
	"github.com/akoreshkov/minefield-server/internal/config"
	"github.com/akoreshkov/minefield-server/internal/database"
	"github.com/akoreshkov/minefield-server/internal/handlers"
	"github.com/akoreshkov/minefield-server/internal/middleware"
)

var log = logrus.New()

func setupLogging() {
	if config.Development() {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	logFile := config.LogFile()
	if logFile == "" {
		return
	}
	hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   logFile,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Level:      logrus.InfoLevel,
		Formatter:  &logrus.JSONFormatter{},
	})
	if err != nil {
		log.WithError(err).Fatal("unable to create rotating log file hook")
	}
	log.AddHook(hook)
}

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func run() error {
	mainCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	db, err := database.ConnectAndMigrate(mainCtx, minefield.Migrations)
	if err != nil {
		return err
	}
	defer db.Close()

	jwt, err := config.NewJWT()
	if err != nil {
		return err
	}

	cookies, err := config.NewCookies(jwt)
	if err != nil {
		return err
	}

	ws := config.NewWebSocket()

	game := handlers.NewGame(log, db, ws, createRand())
	auth := handlers.NewAuth(log, db, cookies, jwt)

	basePath := config.BasePath()
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+basePath+"/game", game.Create)
	mux.HandleFunc("GET "+basePath+"/game/{id}", game.Fetch)
	mux.HandleFunc("POST "+basePath+"/game/{id}/move", game.Move)
	mux.HandleFunc("POST "+basePath+"/game/{id}/forfeit", game.Forfeit)
	mux.HandleFunc("GET "+basePath+"/game/{id}/connect", game.Connect)
	mux.HandleFunc("GET "+basePath+"/status", auth.Status)
	mux.HandleFunc("POST "+basePath+"/register", auth.Register)
	mux.HandleFunc("POST "+basePath+"/login", auth.Login)
	mux.HandleFunc("POST "+basePath+"/logout", auth.Logout)

	server := &http.Server{
		Addr: config.Addr(),
		Handler: middleware.Wrap(
			mux,
			middleware.Auth(cookies),
			middleware.Cors(),
			middleware.Logging(log),
		),
		BaseContext: func(l net.Listener) context.Context {
			return mainCtx
		},
	}

	log.WithFields(logrus.Fields{
		"addr":     server.Addr,
		"basePath": basePath,
	}).Info("ready to serve")

	g, gCtx := errgroup.WithContext(mainCtx)
	g.Go(func() error {
		return server.ListenAndServe()
	})
	g.Go(func() error {
		<-gCtx.Done()
		return server.Shutdown(context.Background())
	})

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func main() {
	setupLogging()

	if err := run(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
