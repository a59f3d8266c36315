package server

import (
	"net/http"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type sampleView struct {
	Channel string    `json:"channel"`
	Value   int       `json:"value"`
	At      time.Time `json:"at"`
}

type controlView struct {
	Ceiling          int         `json:"ceiling"`
	HighPower        bool        `json:"high_power"`
	PowerModeEnabled bool        `json:"power_mode_enabled"`
	LastSignal       *sampleView `json:"last_signal,omitempty"`
	LastDemand       int         `json:"last_demand"`
	LastFrame        []int       `json:"last_frame,omitempty"`
}

type watchdogView struct {
	Outage      bool      `json:"outage"`
	OutageCount uint64    `json:"outage_count"`
	LastSeen    time.Time `json:"last_seen"`
	Bursting    bool      `json:"bursting"`
}

type statusView struct {
	Control  controlView  `json:"control"`
	Watchdog watchdogView `json:"watchdog"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetStatusRequest{}, 5*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetStatusResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if response.HasResponseError() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, response.GetResponseError().Error())
	}
	return c.JSON(http.StatusOK, toStatusView(response))
}

func toStatusView(st domain.GetStatusResponse) statusView {
	view := statusView{
		Control: controlView{
			Ceiling:          st.Control.Ceiling,
			HighPower:        st.Control.HighPower,
			PowerModeEnabled: st.Control.PowerModeEnabled,
			LastDemand:       st.Control.LastDemand,
		},
		Watchdog: watchdogView{
			Outage:      st.Watchdog.Outage,
			OutageCount: st.Watchdog.OutageCount,
			LastSeen:    st.Watchdog.LastSeen,
			Bursting:    st.Watchdog.Bursting,
		},
	}
	if sig := st.Control.LastSignal; sig != nil {
		view.Control.LastSignal = &sampleView{Channel: string(sig.Channel), Value: sig.Value, At: sig.At}
	}
	if f := st.Control.LastFrame; f != nil {
		view.Control.LastFrame = []int{domain.FRAME_BYTE0, domain.FRAME_BYTE1, domain.FRAME_BYTE2, domain.FRAME_BYTE3,
			f.High, f.Low, domain.FRAME_BYTE6, f.Checksum}
	}
	return view
}
