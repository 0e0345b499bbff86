package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"marketpulse/internal/application/port"
	"marketpulse/internal/application/usecase/monitor"
	sentimentuc "marketpulse/internal/application/usecase/sentiment"
	"marketpulse/internal/infrastructure/config"
	"marketpulse/internal/infrastructure/metrics"
	sentimentsrc "marketpulse/internal/infrastructure/sentiment"
	"marketpulse/internal/infrastructure/snapshot"
	"marketpulse/internal/infrastructure/storage/composite"
	kafkarepo "marketpulse/internal/infrastructure/storage/kafka"
	pgrepo "marketpulse/internal/infrastructure/storage/postgres"
	redisrepo "marketpulse/internal/infrastructure/storage/redis"
	sqliterepo "marketpulse/internal/infrastructure/storage/sqlite"
	"marketpulse/internal/infrastructure/websocket"
	"marketpulse/internal/interfaces/console"
	"marketpulse/internal/interfaces/httpapi"

	// 交易所 feed 通过 init() 注册
	_ "marketpulse/internal/infrastructure/exchange/coinbase"
	_ "marketpulse/internal/infrastructure/exchange/kraken"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	metrics      port.Metrics
	recorder     *metrics.Recorder
	wsManager    *websocket.WebSocketManager
	files        *snapshot.FilePublisher
	redisRepo    *redisrepo.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *pgrepo.Repo
	kafkaRepo    *kafkarepo.Repo
	publisher    *composite.Repo

	// 输出端口
	Sink port.Sink

	// 应用业务组件（依赖基础设施）
	store     *monitor.State
	priceFeed []monitor.PriceFeed
	sentiment *sentimentuc.Driver
	http      *httpapi.Server

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		metrics:     port.NopMetrics{},
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 按依赖顺序初始化
func (sc *ServiceContext) initializeComponents() error {
	if sc.Config.Metrics.Enabled {
		sc.recorder = metrics.New()
		sc.metrics = sc.recorder
	}

	// 0. 存储层
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	// 1. 聚合状态
	sc.store = monitor.NewState(sc.publisher, monitor.WithMetrics(sc.metrics))

	// 2. 价格源
	sc.wsManager = websocket.NewWebSocketManager(sc.metrics)
	if err := sc.wsManager.Initialize(sc.Config); err != nil {
		return fmt.Errorf("failed to initialize websocket manager: %w", err)
	}
	sc.priceFeed = sc.wsManager.Feeds()
	if len(sc.priceFeed) == 0 {
		return ErrNoFeedsEnabled
	}

	// 3. 情绪分析
	if sc.Config.Sentiment.Enabled {
		sc.sentiment = sc.buildSentimentDriver()
	}

	// 4. HTTP 只读接口
	if sc.Config.HTTP.Enabled {
		sc.initHTTP()
	}

	log.Info().
		Int("feeds", len(sc.priceFeed)).
		Int("publishers", sc.publisher.Len()).
		Bool("sentiment", sc.sentiment != nil).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage 文件快照总是开启，Redis / SQLite / Postgres 为可选镜像
func (sc *ServiceContext) initializeStorage() error {
	sc.files = snapshot.NewFilePublisher(sc.Config.Snapshot.MarketPath, sc.Config.Snapshot.SentimentPath)
	repos := []port.Publisher{sc.files}

	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		repos = append(repos, sc.redisRepo)
	}

	if sc.Config.SQLite.Enabled {
		if err := sc.initSQLite(); err != nil {
			return fmt.Errorf("sqlite initialization failed: %w", err)
		}
		repos = append(repos, sc.sqliteRepo)
	}

	if sc.Config.Postgres.Enabled {
		if err := sc.initPostgres(); err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
		repos = append(repos, sc.postgresRepo)
	}

	if sc.Config.Kafka.Enabled {
		if err := sc.initKafka(); err != nil {
			return fmt.Errorf("kafka initialization failed: %w", err)
		}
		repos = append(repos, sc.kafkaRepo)
	}

	sc.publisher = composite.New(repos...)
	return nil
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	sc.redisRepo = redisrepo.New(rdb, sc.Config.Redis.Prefix, ttl)

	// 注册关闭回调
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return sc.redisRepo.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Str("key", sc.redisRepo.KeyLatest()).
		Msg("✓ Redis initialized")
	return nil
}

// initSQLite 初始化 SQLite 数据库
func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite repo creation failed: %w", err)
	}
	sc.sqliteRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", sc.Config.SQLite.Path).
		Msg("✓ SQLite initialized")
	return nil
}

func (sc *ServiceContext) initPostgres() error {
	repo, err := pgrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres repo creation failed: %w", err)
	}
	sc.postgresRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

func (sc *ServiceContext) initKafka() error {
	kcfg := sc.Config.Kafka
	repo, err := kafkarepo.New(kcfg.Brokers, kcfg.TickTopic, kcfg.SentimentTopic)
	if err != nil {
		return err
	}
	sc.kafkaRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing kafka writer")
		return repo.Close()
	})

	log.Info().
		Strs("brokers", kcfg.Brokers).
		Str("tick_topic", kcfg.TickTopic).
		Msg("✓ Kafka initialized")
	return nil
}

func (sc *ServiceContext) buildSentimentDriver() *sentimentuc.Driver {
	scfg := sc.Config.Sentiment
	client := sentimentsrc.NewHTTPClient(sc.Config.HTTPTimeout())

	social := make([]port.SampleSource, 0, len(scfg.Social.Channels))
	for _, ch := range scfg.Social.Channels {
		social = append(social, sentimentsrc.NewRedditSource(client, scfg.Social.BaseURL, ch, scfg.Social.Limit, scfg.UserAgent))
	}
	var news []port.SampleSource
	if scfg.News.URL != "" {
		news = append(news, sentimentsrc.NewNewsSource(client, scfg.News.URL, scfg.News.Limit, scfg.UserAgent))
	}

	collector := sentimentuc.NewCollector(sentimentuc.CollectorDeps{
		Social:  social,
		News:    news,
		Scorer:  sentimentsrc.NewVaderScorer(),
		Delay:   sc.Config.SocialDelay(),
		Metrics: sc.metrics,
	})
	fuser := sentimentuc.NewFuser(sc.publisher, scfg.Window, sentimentuc.WithMetrics(sc.metrics))

	log.Info().
		Int("social", len(social)).
		Int("news", len(news)).
		Dur("interval", sc.Config.SentimentInterval()).
		Msg("✓ Sentiment pipeline initialized")
	return sentimentuc.NewDriver(collector, fuser, sc.Config.SentimentInterval())
}

func (sc *ServiceContext) initHTTP() {
	deps := httpapi.ServerDeps{
		Addr:        sc.Config.HTTP.Addr,
		Market:      sc.store,
		MetricsPath: sc.Config.Metrics.Path,
	}
	if sc.sentiment != nil {
		deps.Sentiment = sc.sentiment
	}
	if sc.recorder != nil {
		deps.Metrics = sc.recorder.Handler()
	}
	sc.http = httpapi.NewServer(deps)
}

// BuildMonitorServiceDeps 构建 Monitor Service 所需的所有依赖
func (sc *ServiceContext) BuildMonitorServiceDeps() monitor.ServiceDeps {
	deps := monitor.ServiceDeps{
		Feeds:           sc.priceFeed,
		Store:           sc.store,
		DisplayInterval: sc.Config.DisplayInterval(),
		Sink:            sc.Sink,
		Formatter:       monitor.NewFormatter(true),
	}
	// 避免把 nil *Driver 装进接口
	if sc.sentiment != nil {
		deps.Sentiment = sc.sentiment
	}
	return deps
}

// StartHTTP 启动 HTTP 服务（未开启时什么也不做）
func (sc *ServiceContext) StartHTTP() {
	if sc.http != nil {
		sc.http.Start()
	}
}

func (sc *ServiceContext) GetStore() *monitor.State { return sc.store }

// GetSQLiteRepo 获取 SQLite 仓储
func (sc *ServiceContext) GetSQLiteRepo() *sqliterepo.Repo {
	return sc.sqliteRepo
}

// Close 关闭 ServiceContext 中的所有资源
// 应该在应用退出时调用
func (sc *ServiceContext) Close() error {
	if sc.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sc.http.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("error stopping http server")
		}
		cancel()
	}

	// 按照相反的顺序关闭所有资源
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
