package server

import (
	"net/http"

	"treesearch/engine"
	"treesearch/experiments/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream message types.
const (
	MessageStep    = "step"
	MessageEpisode = "episode"
	MessageError   = "error"
)

// StreamMessage is one server frame of an episode stream. Exactly one of
// Step, Episode or Error is set, matching Type.
type StreamMessage struct {
	Type    string              `json:"type"`
	Step    *metrics.StepRecord `json:"step,omitempty"`
	Episode *engine.Episode     `json:"episode,omitempty"`
	Error   *ErrorResponse      `json:"error,omitempty"`
}

// handleStream plays one episode per connection. The client sends an
// engine.EpisodeConfig and receives a step frame per move followed by the
// episode or an error, then the server closes the connection.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var cfg engine.EpisodeConfig
	if err := conn.ReadJSON(&cfg); err != nil {
		_ = conn.WriteJSON(StreamMessage{Type: MessageError, Error: &ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"}})
		return
	}

	var writeErr error
	runner := engine.New(s.registry,
		engine.WithSessionOptions(s.sessionOptions...),
		engine.WithObserver(func(step metrics.StepRecord) {
			if writeErr == nil {
				writeErr = conn.WriteJSON(StreamMessage{Type: MessageStep, Step: &step})
			}
		}),
	)

	episode, err := runner.Run(c.Request.Context(), cfg)
	if writeErr != nil {
		log.Warn().Err(writeErr).Str("episode", episode.ID).Msg("stream client went away")
		return
	}
	if err != nil {
		_, code := classify(err)
		_ = conn.WriteJSON(StreamMessage{Type: MessageError, Error: &ErrorResponse{Error: err.Error(), Code: code}})
		return
	}
	if err := conn.WriteJSON(StreamMessage{Type: MessageEpisode, Episode: &episode}); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
