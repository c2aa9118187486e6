package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/archive"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/codec"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/config"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/interview"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/logging"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/render"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/session"
)

// #region app

// app holds the wired collaborators for one command run.
type app struct {
	db         *session.SQLStore
	store      session.Store
	turnLog    *logging.TurnLog
	classifier classify.Classifier
	svc        *interview.Service

	closers []func() error
}

// newApp opens the store and builds the interview service from cfg.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := session.Open(cfg.Store.Driver, cfg.Store.DSN,
		session.WithMaxHistory(cfg.Interview.MaxHistory),
		session.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	cached, err := session.NewCachedStore(db, cfg.Store.CacheSize)
	if err != nil {
		return nil, err
	}
	a.store = cached

	if a.turnLog, err = logging.NewTurnLog(db.DB(), db.Driver()); err != nil {
		return nil, err
	}

	if a.classifier, err = a.newClassifier(cfg); err != nil {
		return nil, err
	}

	cat, err := render.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	var gen render.Generator
	if cfg.Generator.Provider == "gemini" {
		g, err := render.NewGeminiGenerator(ctx, render.GeminiConfig{
			APIKey:      cfg.Generator.APIKey,
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
			MaxTokens:   cfg.Generator.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		gen = g
	}

	arch, err := newArchiver(cfg.Archive)
	if err != nil {
		return nil, err
	}

	a.svc, err = interview.New(interview.Options{
		Store:             a.store,
		Classifier:        a.classifier,
		Renderer:          render.New(cat, gen, log),
		TurnLog:           a.turnLog,
		Archiver:          arch,
		Logger:            log,
		DefaultLanguage:   cfg.Language(),
		DefaultVersion:    cfg.Version(),
		ClassifierTimeout: cfg.Classifier.Timeout,
		RenderTimeout:     cfg.Generator.Timeout,
		SessionTimeout:    cfg.Interview.SessionTimeout,
		InternalNotes:     cfg.Interview.InternalNotes,
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

func (a *app) newClassifier(cfg *config.Config) (classify.Classifier, error) {
	if cfg.Classifier.Kind != "judge" {
		return classify.NewHeuristic(classify.DefaultHeuristicConfig()), nil
	}
	jc, err := codec.NewJudgeClient(cfg.Classifier.JudgeAddr)
	if err != nil {
		return nil, fmt.Errorf("connect judge at %s: %w", cfg.Classifier.JudgeAddr, err)
	}
	a.closers = append(a.closers, jc.Close)
	return jc, nil
}

// newArchiver returns nil when archiving is off.
func newArchiver(c config.ArchiveConfig) (archive.Archiver, error) {
	switch c.Kind {
	case "file":
		return archive.NewFileArchiver(c.Dir)
	case "s3":
		return archive.NewS3Archiver(archive.S3Config{
			Endpoint:  c.Endpoint,
			Region:    c.Region,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
			UseSSL:    c.UseSSL,
		})
	default:
		return nil, nil
	}
}

// Close releases everything newApp opened, last first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// #endregion
