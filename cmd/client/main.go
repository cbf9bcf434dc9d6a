package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/for-sale/internal/client"
	"github.com/palemoky/for-sale/internal/config"
	"github.com/palemoky/for-sale/internal/logger"
	"github.com/palemoky/for-sale/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// run 返回退出码，保证所有 defer 在退出前执行
func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	configPath := fs.String("config", "configs/config.yaml", "配置文件路径")
	serverURL := fs.String("server", "", "服务器地址，覆盖配置文件")
	envFile := fs.String("env", ".env", "环境变量文件")
	logFile := fs.String("log", "", "日志文件，覆盖配置文件")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// .env 不存在时忽略
	_ = godotenv.Load(*envFile)

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败，使用默认配置: %v\n", err)
		cfg = config.Default()
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	l, err := logger.Init(logger.Options{Level: cfg.Log.Level, Console: cfg.Log.Console, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			panic(r)
		}
	}()

	out := newPrinter(stdout)
	core, err := client.New(cfg, client.Options{
		Logger: &l,
		Hooks: session.Hooks{
			OnEnteredGame:   func(s session.Snapshot) { out.linef("== game started, round %d ==", s.RoundNumber) },
			OnRoomDestroyed: func(reason string) { out.linef("== room closed: %s ==", reason) },
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("创建客户端失败")
		fmt.Fprintf(os.Stderr, "创建客户端失败: %v\n", err)
		return 1
	}
	defer core.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Server.HandshakeTimeoutDuration()+time.Second)
	err = core.Connect(dialCtx)
	cancel()
	if err != nil {
		out.linef("connect failed: %v", err)
		return 1
	}
	out.linef("connected to %s as %s", cfg.Server.URL, core.Transport.PlayerID())

	notices := make(chan struct{})
	go func() {
		defer close(notices)
		for n := range core.Notices() {
			out.linef("! %s", n.Message)
		}
	}()

	repl := &repl{core: core, out: out}
	repl.run(ctx, stdin)

	core.Close()
	<-notices
	return 0
}
