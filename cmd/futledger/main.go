package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bmartins/futledger/config"
	"github.com/bmartins/futledger/internal/adapters/futgg"
	"github.com/bmartins/futledger/internal/adapters/notify"
	"github.com/bmartins/futledger/internal/adapters/storage"
	"github.com/bmartins/futledger/internal/application/advisor"
	"github.com/bmartins/futledger/internal/application/flow"
	"github.com/bmartins/futledger/internal/application/tracker"
	"github.com/bmartins/futledger/internal/domain"
	"github.com/bmartins/futledger/internal/ports"
)

const usageText = `uso: futledger [flags] <comando> [args]

comandos:
  preco <jogador> <preço> <plataforma>    registra um preço e mostra a dica
  cotacao <jogador> <plataforma>          busca o preço atual na fonte externa
  historico <jogador>                     histórico de preços do jogador
  recentes                                últimas buscas registradas
  jogadores                               jogadores com histórico
  comprar <jogador> <preço> <plataforma>  abre uma posição de compra
  vender <jogador> <preço>                fecha a última compra aberta
  carteira                                resumo de lucro e posições abertas

sem comando, use -interactive para o modo conversa.
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	dryRun := flag.Bool("dry-run", false, "use local fixtures instead of the real price source")
	interactive := flag.Bool("interactive", false, "REPL mode: type like you would chat with the bot")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("futledger starting",
		"config", *configPath,
		"driver", cfg.Storage.Driver,
		"fee_rate", cfg.Market.FeeRate,
		"dry_run", *dryRun,
	)

	ledger, book, err := openStores(cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer ledger.Close()
	defer book.Close()

	var source ports.PriceSource
	if *dryRun {
		source = futgg.NewFixture()
	} else {
		source = futgg.NewClient(cfg.FutGG.BaseURL, cfg.FutGG.APIKey)
	}

	adv := advisor.New(ledger)
	trk := tracker.New(book, cfg.Market.FeeRate, cfg.Market.RecentClosed)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &cli{
		cfg:     cfg,
		ledger:  ledger,
		advisor: adv,
		tracker: trk,
		source:  source,
		console: notify.NewConsole(),
	}

	if *interactive {
		app.repl(ctx)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		if domain.IsParseError(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		slog.Error("command failed", "cmd", args[0], "err", err)
		os.Exit(1)
	}
}

// openStores monta a dupla ledger/carteira conforme o driver. Com SQLite a
// mesma store serve os dois papéis e compartilha a conexão.
func openStores(cfg config.StorageConfig) (ports.Ledger, ports.PositionBook, error) {
	if cfg.Driver == "sqlite" {
		store, err := storage.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return storage.NewCSVLedger(cfg.PricesPath), storage.NewCSVPositionBook(cfg.PositionsPath), nil
}

type cli struct {
	cfg     *config.Config
	ledger  ports.Ledger
	advisor *advisor.Advisor
	tracker *tracker.Tracker
	source  ports.PriceSource
	console *notify.Console
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "preco", "preço":
		return c.recordPrice(ctx, args)
	case "cotacao", "cotação":
		return c.quote(ctx, args)
	case "historico", "histórico":
		return c.history(ctx, args)
	case "recentes":
		return c.recent(ctx)
	case "jogadores":
		return c.subjects(ctx)
	case "comprar":
		return c.buy(ctx, args)
	case "vender":
		return c.sell(ctx, args)
	case "carteira":
		return c.portfolio(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("comando desconhecido: %q", cmd)
	}
}

func (c *cli) recordPrice(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return &domain.ParseError{Field: "args", Value: "uso: preco <jogador> <preço> <plataforma>"}
	}
	subject, rawPrice, rawPlatform := joinSubject(args)
	price, err := domain.ParsePrice(rawPrice)
	if err != nil {
		return err
	}
	platform, err := domain.ParsePlatform(rawPlatform)
	if err != nil {
		return err
	}
	rec, tip, err := c.advisor.Record(ctx, subject, price, platform)
	if err != nil {
		return err
	}
	c.console.PrintTip(rec, flow.TipMessage(tip))
	return nil
}

func (c *cli) quote(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return &domain.ParseError{Field: "args", Value: "uso: cotacao <jogador> <plataforma>"}
	}
	subject := strings.Join(args[:len(args)-1], " ")
	platform, err := domain.ParsePlatform(args[len(args)-1])
	if err != nil {
		return err
	}
	price, err := c.source.Lookup(ctx, subject, platform)
	if err != nil {
		return err
	}
	rec, tip, err := c.advisor.Record(ctx, subject, price, platform)
	if err != nil {
		return err
	}
	c.console.PrintTip(rec, flow.TipMessage(tip))
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return &domain.ParseError{Field: "args", Value: "uso: historico <jogador>"}
	}
	subject := domain.NormalizeSubject(strings.Join(args, " "))
	recs, err := c.advisor.History(ctx, subject)
	if err != nil {
		return err
	}
	c.console.PrintHistory(subject, recs)
	return nil
}

func (c *cli) recent(ctx context.Context) error {
	recs, err := c.ledger.Recent(ctx, c.cfg.Market.RecentPrices)
	if err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
		return err
	}
	c.console.PrintRecent(recs)
	return nil
}

func (c *cli) subjects(ctx context.Context) error {
	subjects, err := c.ledger.Subjects(ctx)
	if err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
		return err
	}
	c.console.PrintSubjects(subjects)
	return nil
}

func (c *cli) buy(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return &domain.ParseError{Field: "args", Value: "uso: comprar <jogador> <preço> <plataforma>"}
	}
	subject, rawPrice, rawPlatform := joinSubject(args)
	price, err := domain.ParsePrice(rawPrice)
	if err != nil {
		return err
	}
	platform, err := domain.ParsePlatform(rawPlatform)
	if err != nil {
		return err
	}
	pos, err := c.tracker.OpenPosition(ctx, subject, price, platform)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Compra registrada: %s por %s moedas (%s)\n",
		pos.Subject, domain.FormatPrice(pos.BuyPrice), pos.Platform.Label())
	return nil
}

func (c *cli) sell(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return &domain.ParseError{Field: "args", Value: "uso: vender <jogador> <preço>"}
	}
	subject := strings.Join(args[:len(args)-1], " ")
	price, err := domain.ParsePrice(args[len(args)-1])
	if err != nil {
		return err
	}
	pos, st, err := c.tracker.ClosePosition(ctx, subject, price)
	if err != nil {
		return err
	}
	fmt.Printf("💰 Venda registrada: %s por %s moedas\n", pos.Subject, domain.FormatPrice(price))
	fmt.Printf("   Taxa do mercado: %s | Resultado líquido: %s\n",
		domain.FormatPrice(st.Fee), domain.FormatPrice(st.Net))
	return nil
}

func (c *cli) portfolio(ctx context.Context) error {
	pf, err := c.tracker.Summary(ctx)
	if err != nil {
		return err
	}
	c.console.PrintPortfolio(pf)
	return nil
}

// repl lê comandos do stdin e responde como o bot responderia no chat.
func (c *cli) repl(ctx context.Context) {
	session := flow.NewSession(c.advisor, c.tracker, c.ledger, c.cfg.Market.RecentPrices)

	fmt.Println(session.Handle(ctx, "/start"))
	fmt.Print("> ")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			slog.Info("futledger stopped cleanly")
			return
		case line, ok := <-lines:
			if !ok {
				slog.Info("futledger stopped cleanly")
				return
			}
			if strings.TrimSpace(line) == "sair" {
				fmt.Println("Até logo! ⚽")
				return
			}
			fmt.Println(session.Handle(ctx, line))
			fmt.Print("> ")
		}
	}
}

// joinSubject trata nomes compostos: tudo menos os dois últimos args é o
// jogador, depois vêm preço e plataforma.
func joinSubject(args []string) (subject, price, platform string) {
	n := len(args)
	return strings.Join(args[:n-2], " "), args[n-2], args[n-1]
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
