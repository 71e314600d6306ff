package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"

	"tmichat/internal/app/ports"
	"tmichat/pkg/logger"
	"tmichat/pkg/tmi/irc"
	"tmichat/pkg/tmi/state"
)

type Handlers struct {
	log     logger.Logger
	chat    ports.StatusPort
	started time.Time
}

func New(log logger.Logger, chat ports.StatusPort) *Handlers {
	return &Handlers{
		log:     log,
		chat:    chat,
		started: time.Now(),
	}
}

type StatusResponse struct {
	State             string  `json:"state"`
	Username          string  `json:"username"`
	LatencyMs         int64   `json:"latency_ms"`
	ReconnectAttempts int     `json:"reconnect_attempts"`
	Channels          int     `json:"channels"`
	Uptime            string  `json:"uptime"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryMB          uint64  `json:"memory_mb"`
}

func (h *Handlers) StatusHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := StatusResponse{
		State:             h.chat.ReadyState().String(),
		Username:          h.chat.Username(),
		LatencyMs:         h.chat.Latency().Milliseconds(),
		ReconnectAttempts: h.chat.ReconnectAttempts(),
		Channels:          len(h.chat.Channels()),
		Uptime:            time.Since(h.started).Truncate(time.Second).String(),
		MemoryMB:          m.Sys / 1024 / 1024,
	}

	percent, err := cpu.Percent(0, false)
	if err != nil {
		h.log.Warn("Failed to read cpu usage", "error", err.Error())
	} else if len(percent) > 0 {
		resp.CPUPercent = percent[0]
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) ChannelsHandler(c *gin.Context) {
	channels := h.chat.Channels()
	if channels == nil {
		channels = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type ChannelResponse struct {
	Channel      string          `json:"channel"`
	Room         state.RoomState `json:"room"`
	Roster       []string        `json:"roster"`
	Moderators   []string        `json:"moderators"`
	ModsUpdated  *time.Time      `json:"moderators_refreshed_at,omitempty"`
	RosterLength int             `json:"roster_length"`
}

func (h *Handlers) ChannelHandler(c *gin.Context) {
	name := irc.NormalizeChannel(c.Param("channel"))

	room, ok := h.chat.RoomState(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not joined"})
		return
	}

	resp := ChannelResponse{
		Channel: name,
		Room:    room,
		Roster:  h.chat.Roster(name),
	}
	resp.RosterLength = len(resp.Roster)

	mods, refreshed, _ := h.chat.Moderators(name)
	resp.Moderators = mods
	if !refreshed.IsZero() {
		resp.ModsUpdated = &refreshed
	}

	c.JSON(http.StatusOK, resp)
}
