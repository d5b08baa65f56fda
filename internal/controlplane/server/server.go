package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/betbot/gohedge/internal/risk"
	"github.com/betbot/gohedge/internal/strategies/straddle"
)

// StatusProvider 策略侧暴露给控制面的只读/介入接口
type StatusProvider interface {
	Status() (straddle.CycleReport, bool)
	Breaker() *risk.CircuitBreaker
}

type Config struct {
	Addr   string
	DBPath string
}

// Server 只读为主的控制面：周期流水落 SQLite，HTTP 提供
// 健康检查、最近状态、历史周期查询，以及断路器的人工介入。
type Server struct {
	cfg    Config
	db     *sql.DB
	status StatusProvider
}

func New(cfg Config, status StatusProvider) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	s := &Server{cfg: cfg, db: db, status: status}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetStatus 绑定策略侧状态源。必须在开始服务 HTTP 之前调用。
func (s *Server) SetStatus(status StatusProvider) { s.status = status }

func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/cycles", s.handleCyclesList)

	breaker := api.Group("/breaker")
	breaker.POST("/halt", s.handleBreakerHalt)
	breaker.POST("/resume", s.handleBreakerResume)

	return r
}
