package core

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mbarden/leadwire/internals/agent"
	"github.com/mbarden/leadwire/internals/assert"
	"github.com/mbarden/leadwire/internals/conf"
	"github.com/mbarden/leadwire/internals/crm"
	"github.com/mbarden/leadwire/internals/env"
	"github.com/mbarden/leadwire/internals/tools"
	"github.com/mbarden/leadwire/leadwired/core/db"
)

type BaseServer struct {
	Config  *conf.Config
	Env     *env.EnvStruct
	Logger  *slog.Logger
	DB      *sql.DB
	CRM     *crm.Store
	Tools   *tools.Registry
	Agent   *agent.Engine
	logFile *os.File
}

func New() *BaseServer {
	env := env.Get()
	config := conf.GetConfig()
	if config.Server.DataDir != "" {
		config.Server.DataDir = filepath.Clean(config.Server.DataDir)
	}

	logger, logFile := InitLogger(config)

	conn, err := InitDB(config)
	assert.AssertNil(err, "[CORE] Failed to initialize database")

	crmStore := crm.NewStore(conn)
	registry := tools.NewRegistry(crmStore)
	planner := initPlanner(config, env)
	engine := agent.NewEngine(agent.NewStore(conn), registry, planner, logger, config.Agent)

	return &BaseServer{
		Config:  config,
		Env:     env,
		Logger:  logger,
		DB:      conn,
		CRM:     crmStore,
		Tools:   registry,
		Agent:   engine,
		logFile: logFile,
	}
}

func InitDB(config *conf.Config) (*sql.DB, error) {
	if err := os.MkdirAll(config.Server.DataDir, 0o755); err != nil {
		return nil, err
	}
	return db.Open(filepath.Join(config.Server.DataDir, "leadwire.db"))
}

func initPlanner(config *conf.Config, env *env.EnvStruct) agent.Planner {
	opts := []openai.Option{openai.WithModel(config.Agent.Model)}
	if env.OPENAI_API_KEY != "" {
		opts = append(opts, openai.WithToken(env.OPENAI_API_KEY))
	}
	if env.OPENAI_BASE_URL != "" {
		opts = append(opts, openai.WithBaseURL(env.OPENAI_BASE_URL))
	}
	model, err := openai.New(opts...)
	assert.AssertNil(err, "[CORE] Failed to initialize planner model")
	return agent.NewLLMPlanner(model)
}

func (b *BaseServer) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
	if b.logFile != nil {
		b.logFile.Close()
	}
}
