package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"markov-chatter/internal/auth"
	"markov-chatter/internal/bot"
	"markov-chatter/internal/config"
	"markov-chatter/internal/copypasta"
	"markov-chatter/internal/detectors"
	"markov-chatter/internal/ledger"
	"markov-chatter/internal/llm"
	"markov-chatter/internal/scheduler"
	"markov-chatter/internal/storage"
	"markov-chatter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	genCfg, err := cfg.Copypasta()
	if err != nil {
		log.Fatalf("invalid generator config: %v", err)
	}

	tg, err := telegram.New(cfg.TelegramBotToken, cfg.AllowedChats)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	engine := copypasta.New(genCfg, copypasta.Identity{Owner: cfg.OwnerName, Self: tg.UserName()}, nil)

	ledgerRepo, err := ledger.NewFileRepository(cfg.LedgerFilePath)
	if err != nil {
		log.Fatalf("failed to init ledger: %v", err)
	}
	entries, err := ledgerRepo.LoadAll()
	if err != nil {
		log.Fatalf("failed to load ledger: %v", err)
	}
	engine.LoadLedger(entries)

	corpus, err := ledger.LoadCorpus(cfg.CorpusFilePath)
	if err != nil {
		log.Printf("failed to load corpus: %v", err)
	}
	engine.LoadCorpus(corpus)
	stats := engine.Stats()
	log.Printf("📚 Loaded %d ledger entries and %d corpus lines (%d states)", len(entries), len(corpus), stats.States)

	var modRepo auth.Repository
	if cfg.ModeratorsFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.ModeratorsFilePath)
		if err != nil {
			log.Printf("failed to init moderators repo: %v", err)
		} else {
			modRepo = repo
		}
	}
	authSvc, err := auth.NewWithRepo(modRepo, cfg.OwnerUserID, cfg.ModeratorIDs)
	if err != nil {
		log.Fatalf("failed to init auth: %v", err)
	}

	var rec storage.Recorder
	if cfg.UtteranceLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.UtteranceLogPath)
		if err != nil {
			log.Printf("failed to init utterance log: %v", err)
		} else {
			rec = fr
		}
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Printf("askgpt disabled: %v", err)
		llmClient = nil
	}

	out := bot.NewOutput(tg, rec, genCfg.MaxMessageLength, config.PlatformMaxMessageLength)
	coord := bot.New(bot.Options{
		Engine:   engine,
		Schedule: config.Schedule(genCfg),
		Clock:    scheduler.SystemClock(),
		Output:   out,
		Auth:     authSvc,
		Ledger:   ledgerRepo,
		Recorder: rec,
		LLM:      llmClient,
		BotName:  tg.UserName(),
	})

	tg.Subscribe(coord)
	tg.Subscribe(detectors.NewChant(out, cfg.ChantRepeatCount))
	tg.Subscribe(detectors.NewPyramid(out, nil, cfg.PyramidStopSize, cfg.PyramidMention))
	tg.Subscribe(detectors.NewDadJoke(out, nil, tg.UserName()))
	tg.OnModeration(coord)

	reports := scheduler.New(cfg.ReportSchedule)
	reports.SetReportFunction(coord.Report)
	if err := reports.Start(); err != nil {
		log.Printf("failed to start report scheduler: %v", err)
	}
	defer reports.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(ctx) })
	g.Go(func() error { return tg.Start(ctx) })
	if err := g.Wait(); err != nil {
		log.Printf("❌ Stopped with error: %v", err)
		return
	}
	log.Println("👋 Bye")
}
