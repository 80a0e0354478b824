// Package statusserver implements the Status Server (A5): a read-only
// gin.Engine exposing liveness, per-PLC status, and host metrics. Three
// unauthenticated GET routes on the root router, since this surface never
// accepts a write.
package statusserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"

	"finsbridge/pkg/supervisor"
)

// Server binds gin's router to localhost:port and answers /healthz,
// /status, and /metrics/host.
type Server struct {
	port int
	sup  *supervisor.Supervisor
	srv  *http.Server
}

// New builds a Server. Bind happens in Serve, not here, so construction
// never fails.
func New(port int, sup *supervisor.Supervisor) *Server {
	return &Server{port: port, sup: sup}
}

// Serve starts listening in a background goroutine and returns immediately.
// A bind failure is logged, never fatal (A5): the acquisition loops are
// the bridge's reason for existing, this endpoint is a convenience.
func (s *Server) Serve() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.healthz)
	router.GET("/status", s.status)
	router.GET("/metrics/host", s.hostMetrics)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: router,
	}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "status server stopped")
		}
	}()
}

// Shutdown gracefully stops the HTTP server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.srv.SetKeepAlivesEnabled(false)
	return s.srv.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	snapshots := s.sup.Snapshots()
	out := make([]gin.H, 0, len(snapshots))
	for _, snap := range snapshots {
		out = append(out, gin.H{
			"plc_name":                   snap.PLCName,
			"state":                      stateString(snap),
			"sink_mode":                  sinkModeString(snap),
			"fins_up":                    snap.FinsUp,
			"opcua_up":                   snap.OpcuaUp,
			"cycle_ok":                   snap.CycleOK,
			"consecutive_read_failures":  snap.ReadFailures,
			"consecutive_write_failures": snap.WriteFailures,
			"csv_path":                   snap.CSVPath,
			"cancel_requested":           snap.CancelRequested,
			"exit_cause":                 exitCauseString(snap),
		})
	}
	c.JSON(http.StatusOK, gin.H{"plcs": out})
}

func (s *Server) hostMetrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	cpuPct := 0.0
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"cpu_percent":  cpuPct,
		"mem_used_pct": vm.UsedPercent,
	})
}
