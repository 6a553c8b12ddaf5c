package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordscape/wordscape/pkg/embedding"
	"github.com/wordscape/wordscape/pkg/realtime"
	"github.com/wordscape/wordscape/pkg/session"
	"github.com/wordscape/wordscape/pkg/vocab"
)

const defaultSystemPrompt = `You are a friendly vocabulary coach. Speak in short,
clear sentences and use varied, interesting words the learner can collect.`

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Interactive push-to-talk conversation session",
	Long: `Start a voice session. Press Enter to start talking (this interrupts
the assistant if it is speaking), press Enter again to stop and let the
assistant respond. Type 'quit' to end the session.

Every word the assistant says is positioned in 3D space and persisted
to the vocabulary store.`,
	RunE: runTalk,
}

func init() {
	rootCmd.AddCommand(talkCmd)
}

func runTalk(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return err
	}

	var clientOpts []realtime.Option
	if cfg.Model != "" {
		clientOpts = append(clientOpts, realtime.WithModel(cfg.Model))
	}
	if cfg.Voice != "" {
		clientOpts = append(clientOpts, realtime.WithVoice(cfg.Voice))
	}
	client := realtime.NewClient(apiKey, clientOpts...)

	var transport session.Transport
	if cfg.Transport == "websocket" {
		transport = realtime.NewWebSocketTransport(client)
	} else {
		transport = realtime.NewWebRTCTransport(client)
	}

	store, err := vocab.NewBadgerStore(vocab.BadgerOptions{Dir: cfg.ResolveVocabDir()})
	if err != nil {
		return err
	}
	defer store.Close()

	var resolver vocab.PointResolver
	if cfg.EmbeddingURL != "" {
		resolver = embedding.NewClient(cfg.EmbeddingURL)
	} else {
		resolver = localResolver{}
	}
	ingestor := vocab.NewIngestor(store, resolver)
	defer ingestor.Close()

	sink := multiSink{&consoleSink{}, ingestor}
	audio := &consoleAudio{}
	tally := session.NewTokenTally(cfg.TokenLimit)
	sm := session.NewStateMachine()
	router := session.NewEventRouter(audio, sink, session.WithUsageMeter(tally))

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	lifecycle := session.NewLifecycle(session.LifecycleDeps{
		State:       sm,
		Credentials: client,
		Transport:   transport,
		Router:      router,
		Audio:       audio,
		Status:      &consolePresenter{},
	}, session.LifecycleConfig{
		SystemPrompt: prompt,
		Session:      &realtime.SessionConfig{TurnDetectionDisabled: true},
		Mobile:       cfg.Mobile,
	})

	pttCfg := session.PTTConfig{}
	if cfg.ReleaseBufferMs > 0 {
		pttCfg.ReleaseBuffer = time.Duration(cfg.ReleaseBufferMs) * time.Millisecond
	}
	ptt := session.NewPTT(sm, lifecycle, router, audio, pttCfg,
		session.WithUsageGate(tally),
		session.WithPTTSink(sink),
	)

	ctx := cmd.Context()
	if err := lifecycle.Connect(ctx); err != nil {
		return err
	}
	defer lifecycle.Close()

	fmt.Println("connected - Enter to talk, Enter again to send, 'quit' to exit")

	talking := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}
		if !talking {
			res := ptt.HandlePTTPress(ctx)
			if !res.Allowed {
				fmt.Printf("cannot talk right now: %s\n", res.Reason)
				continue
			}
			talking = true
			fmt.Println("listening... (Enter to send)")
		} else {
			ptt.HandlePTTRelease(ctx, session.ReleaseOpts{})
			talking = false
			fmt.Println("thinking...")
		}
	}

	if IsVerbose() {
		total, estimated := tally.Totals()
		fmt.Printf("session usage: %d tokens (+%d estimated)\n", total, estimated)
	}
	return scanner.Err()
}

// localResolver positions words without an embedding service.
type localResolver struct{}

func (localResolver) Resolve(_ context.Context, word string) (embedding.Point, bool) {
	return embedding.FallbackPoint(word, embedding.DefaultScale), true
}

// consoleAudio satisfies the audio manager for a terminal session.
// Remote audio playback and microphone capture devices are platform
// work; the transport still carries audio, this side just does not
// render or record it.
type consoleAudio struct{}

func (a *consoleAudio) HandleRemoteAudio(payload []byte) {}

func (a *consoleAudio) StartRecording(ctx context.Context) error { return nil }

func (a *consoleAudio) StopRecording(ctx context.Context) (*session.Recording, error) {
	return &session.Recording{}, nil
}

func (a *consoleAudio) StartTurnCapture() error { return nil }

func (a *consoleAudio) StopTurnCapture() (session.Artifact, error) {
	return session.Artifact{}, nil
}

// consolePresenter prints status changes to stderr.
type consolePresenter struct{}

func (consolePresenter) SetStatus(status session.Status) {
	fmt.Fprintf(os.Stderr, "[%s]\n", status)
}

func (consolePresenter) PresentError(err error) {
	fmt.Fprintf(os.Stderr, "connection failed: %v (try again)\n", err)
}

// consoleSink prints finalized assistant turns.
type consoleSink struct{}

func (consoleSink) UtteranceAdded(u session.Utterance) {
	marker := ""
	if u.Interrupted {
		marker = " [interrupted]"
	}
	fmt.Printf("assistant%s: %s\n", marker, u.Transcript)
	if len(u.Words) > 0 {
		fmt.Printf("  +%d words\n", len(u.Words))
	}
}

func (consoleSink) SpeechStarted() {}

func (consoleSink) SpeechStopped() {}

// multiSink fans events out to several sinks.
type multiSink []session.EventSink

func (m multiSink) UtteranceAdded(u session.Utterance) {
	for _, s := range m {
		s.UtteranceAdded(u)
	}
}

func (m multiSink) SpeechStarted() {
	for _, s := range m {
		s.SpeechStarted()
	}
}

func (m multiSink) SpeechStopped() {
	for _, s := range m {
		s.SpeechStopped()
	}
}
