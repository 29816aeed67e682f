package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/voice"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/chiron-lab/chiron/pkg/utils/errutil"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// wsReadLimit caps one websocket message. PCM frames at 16kHz mono are a few
// KB each, so this leaves ample room for batched frames.
const wsReadLimit = 1 << 20

// wsEvent is a server-to-client message on a voice stream
type wsEvent struct {
	Type        string             `json:"type"`
	State       string             `json:"state,omitempty"`
	Text        string             `json:"text,omitempty"`
	Message     string             `json:"message,omitempty"`
	Interaction *model.Interaction `json:"interaction,omitempty"`
}

// wsControl is a client-to-server text message on a voice stream
type wsControl struct {
	Type string `json:"type"`
}

// handleVoice upgrades to a websocket and runs the voice capture loop:
// binary messages carry PCM frames, text messages carry control commands,
// and the server pushes state, transcript, answer and error events.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := types.SessionID(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("session_id is required"), http.StatusBadRequest)
		return
	}
	if _, err := s.uc.Analytics.Session(ctx, sessionID); err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	recorder, err := voice.NewTurnRecorder(s.voiceCfg)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	stream := &voiceStream{
		conn:     conn,
		chat:     s.uc.Chat,
		session:  sessionID,
		recorder: recorder,
	}
	if err := stream.run(ctx); err != nil {
		logging.From(ctx).Warn("voice stream closed with error",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// voiceStream owns one websocket connection. The read loop is the only
// goroutine touching the recorder; finished utterances are handed to the
// turn loop so capture continues while a turn is processed.
type voiceStream struct {
	conn     *websocket.Conn
	chat     *usecase.ChatUseCase
	session  types.SessionID
	recorder *voice.TurnRecorder

	// writeMu serializes writes; gorilla allows one concurrent writer
	writeMu sync.Mutex

	turnMu    sync.Mutex
	abortTurn context.CancelFunc
}

func (v *voiceStream) run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	turns := make(chan *model.Utterance, 1)

	eg.Go(func() error {
		defer close(turns)
		return v.readLoop(ctx, turns)
	})
	eg.Go(func() error {
		return v.turnLoop(ctx, turns)
	})

	return eg.Wait()
}

func (v *voiceStream) readLoop(ctx context.Context, turns chan<- *model.Utterance) error {
	for {
		msgType, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return goerr.Wrap(err, "failed to read voice message")
		}

		switch msgType {
		case websocket.BinaryMessage:
			prev := v.recorder.State()
			utterance, done := v.recorder.Feed(data)
			if state := v.recorder.State(); state != prev {
				v.send(ctx, wsEvent{Type: "state", State: state.String()})
			}
			if !done {
				continue
			}
			select {
			case turns <- utterance:
			case <-ctx.Done():
				return ctx.Err()
			default:
				// the previous turn still holds the slot
				v.send(ctx, wsEvent{Type: "error", Message: "previous turn still processing, utterance dropped"})
			}

		case websocket.TextMessage:
			var ctrl wsControl
			if err := json.Unmarshal(data, &ctrl); err != nil {
				v.send(ctx, wsEvent{Type: "error", Message: "invalid control message"})
				continue
			}
			switch ctrl.Type {
			case "abort":
				v.recorder.Abort()
				v.cancelTurn()
				v.send(ctx, wsEvent{Type: "state", State: types.TurnStateIdle.String()})
			default:
				v.send(ctx, wsEvent{Type: "error", Message: "unknown control type: " + ctrl.Type})
			}
		}
	}
}

func (v *voiceStream) turnLoop(ctx context.Context, turns <-chan *model.Utterance) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case utterance, ok := <-turns:
			if !ok {
				return nil
			}
			v.processTurn(ctx, utterance)
		}
	}
}

func (v *voiceStream) processTurn(ctx context.Context, utterance *model.Utterance) {
	turnCtx, cancel := context.WithCancel(ctx)
	v.setAbort(cancel)
	defer func() {
		v.setAbort(nil)
		cancel()
	}()

	interaction, err := v.chat.HandleTurn(turnCtx, v.session, utterance)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// aborted by the client; nothing was recorded
			return
		}
		logging.From(ctx).Warn("voice turn failed",
			"session_id", v.session,
			"error", err,
		)
		v.send(ctx, wsEvent{Type: "error", Message: "failed to process turn"})
		return
	}

	if interaction.Query != "" {
		v.send(ctx, wsEvent{Type: "transcript", Text: interaction.Query})
	}
	v.send(ctx, wsEvent{Type: "answer", Interaction: interaction})
}

func (v *voiceStream) setAbort(cancel context.CancelFunc) {
	v.turnMu.Lock()
	defer v.turnMu.Unlock()
	v.abortTurn = cancel
}

func (v *voiceStream) cancelTurn() {
	v.turnMu.Lock()
	defer v.turnMu.Unlock()
	if v.abortTurn != nil {
		v.abortTurn()
		v.abortTurn = nil
	}
}

func (v *voiceStream) send(ctx context.Context, event wsEvent) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	if err := v.conn.WriteJSON(event); err != nil {
		logging.From(ctx).Warn("failed to write voice event",
			"session_id", v.session,
			"type", event.Type,
			"error", err,
		)
	}
}
