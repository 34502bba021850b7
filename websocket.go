package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const streamIdleTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleDetectStream answers every frame with a /detect response. A frame
// that fails gets a failure message and the connection stays open.
func (s *AppState) handleDetectStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Base64 text frames are a third larger than the image they carry.
	conn.SetReadLimit(s.Config.MaxUploadBytes * 2)
	conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
	})

	s.Log.Debugf("Detection stream opened from %s", r.RemoteAddr)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Log.Warnf("Detection stream closed: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))

		if err := conn.WriteJSON(s.detectFrame(r, messageType, data)); err != nil {
			s.Log.Warnf("Error writing detection frame: %v", err)
			return
		}
	}
}

func (s *AppState) detectFrame(r *http.Request, messageType int, data []byte) interface{} {
	timings := s.newTimings()
	log := s.requestLogger(timings, "/ws/detect")

	resp, err := func() (*DetectResponse, error) {
		model, release, err := s.Store.Acquire()
		if err != nil {
			return nil, err
		}
		defer release()

		in, err := frameInput(messageType, data)
		if err != nil {
			return nil, err
		}
		return s.detect(r.Context(), model, in, timings, log)
	}()
	if err != nil {
		status, message := s.errorStatus(err, MsgDetectionFailed)
		logRequestError(log, status, err)
		return FailureResponse{Success: false, Error: message}
	}

	s.record(r.Context(), log, "/ws/detect", resp.Stats, resp.TotalDetections, timings.Total)
	return resp
}
