// Package client assembles the sync core for one player session.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/palemoky/for-sale/internal/config"
	"github.com/palemoky/for-sale/internal/dispatch"
	"github.com/palemoky/for-sale/internal/request"
	"github.com/palemoky/for-sale/internal/session"
	"github.com/palemoky/for-sale/internal/storage"
	"github.com/palemoky/for-sale/internal/transport"
)

const redisPingTimeout = 5 * time.Second

// Options 组装参数，零值可用
type Options struct {
	Logger *zerolog.Logger
	Hooks  session.Hooks
	Clock  clockwork.Clock
}

// Core 一名玩家的同步核心：连接、请求跟踪、会话状态和动作分发
type Core struct {
	Transport *transport.Client
	Tracker   *request.Tracker
	Store     *session.Store
	Actions   *dispatch.Dispatcher

	redis    *redis.Client
	archive  *storage.SnapshotArchive
	recorder *storage.Recorder
	log      zerolog.Logger

	closeOnce sync.Once
}

// New 按配置创建核心，不会立即连接服务器
func New(cfg *config.Config, opts Options) (*Core, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	c := &Core{log: log.With().Str("component", "core").Logger()}

	storeOpts := []session.Option{session.WithHooks(opts.Hooks), session.WithLogger(log)}
	if cfg.Redis.Enabled {
		// 初始化 Redis 客户端
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}

		c.redis = rdb
		c.archive = storage.NewSnapshotArchive(rdb, storage.ArchiveOptions{
			History: cfg.Redis.History,
			TTL:     cfg.Redis.TTLDuration(),
		})
		c.recorder = storage.NewRecorder(c.archive, 0, log)
		storeOpts = append(storeOpts, session.WithArchive(c.recorder))
	}

	c.Transport = transport.NewClient(cfg.Server.URL, transport.Options{
		HandshakeTimeout: cfg.Server.HandshakeTimeoutDuration(),
		SendBuffer:       cfg.Client.SendBuffer,
		NoticeBuffer:     cfg.Client.NoticeBuffer,
		Logger:           &log,
	})
	c.Store = session.NewStore(c.Transport, storeOpts...)
	c.Tracker = request.NewTracker(c.Transport, request.WithClock(clock), request.WithLogger(log))
	c.Actions = dispatch.New(c.Transport, c.Tracker, c.Store,
		dispatch.WithTimeout(cfg.Client.RequestTimeoutDuration()),
		dispatch.WithLogger(log),
	)

	// 会话先于任何一次性监听订阅，快照总在请求完成前应用
	c.Store.Attach(c.Transport)

	return c, nil
}

// Connect 连接服务器
func (c *Core) Connect(ctx context.Context) error {
	if err := c.Transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", c.Transport.ServerURL, err)
	}
	return nil
}

// Notices 与待决请求无关的服务端错误，Close 后关闭
func (c *Core) Notices() <-chan transport.Notice {
	return c.Transport.Notices()
}

// Archive 返回快照归档，未启用 Redis 时为 nil
func (c *Core) Archive() *storage.SnapshotArchive {
	return c.archive
}

// Close 断开连接（包括进行中的连接），等待读写协程退出后释放归档资源，可重复调用
func (c *Core) Close() {
	c.closeOnce.Do(c.close)
}

func (c *Core) close() {
	c.Transport.Close()
	c.Store.Detach()
	if c.recorder != nil {
		c.recorder.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warn().Err(err).Msg("redis close failed")
		}
	}
	c.log.Info().Msg("core closed")
}
