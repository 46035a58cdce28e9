package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"ambuassist/internal/config"
	"ambuassist/internal/logging"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// audioChunkBytes is 100ms of 16 kHz LINEAR16 mono audio.
const audioChunkBytes = 3200

// GCPRecognizer streams microphone audio captured by a local command to
// Google Cloud Speech-to-Text and reports interim and final transcripts.
type GCPRecognizer struct {
	language    string
	audioArgv   []string
	sampleRate  int
	credentials string
}

// NewGCPRecognizer builds a recognizer for language from cfg.
func NewGCPRecognizer(language string, cfg config.RecognitionConfig) *GCPRecognizer {
	return &GCPRecognizer{
		language:    language,
		audioArgv:   strings.Fields(cfg.AudioCommand),
		sampleRate:  cfg.SampleRate,
		credentials: cfg.Credentials,
	}
}

func (g *GCPRecognizer) Name() string { return "gcp" }

// Supported reports whether the audio capture command is available.
func (g *GCPRecognizer) Supported() bool {
	if len(g.audioArgv) == 0 {
		return false
	}
	_, err := exec.LookPath(g.audioArgv[0])
	return err == nil
}

func (g *GCPRecognizer) clientOptions() []option.ClientOption {
	if g.credentials == "" {
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(g.credentials), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(g.credentials))}
	}
	return []option.ClientOption{option.WithCredentialsFile(g.credentials)}
}

func (g *GCPRecognizer) streamingConfig() *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            int32(g.sampleRate),
					AudioChannelCount:          1,
					LanguageCode:               g.language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults:  true,
				SingleUtterance: true,
			},
		},
	}
}

// Recognize captures one utterance. It returns nil when the utterance ends
// or ctx is cancelled.
func (g *GCPRecognizer) Recognize(ctx context.Context, emit func(RecognitionEvent)) error {
	if !g.Supported() {
		return ErrUnsupported
	}

	client, err := speechapi.NewClient(ctx, g.clientOptions()...)
	if err != nil {
		return fmt.Errorf("speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return fmt.Errorf("streaming recognize: %w", err)
	}
	if err := stream.Send(g.streamingConfig()); err != nil {
		return fmt.Errorf("send streaming config: %w", err)
	}

	audioCtx, stopAudio := context.WithCancel(ctx)
	defer stopAudio()
	capture := exec.CommandContext(audioCtx, g.audioArgv[0], g.audioArgv[1:]...)
	audio, err := capture.StdoutPipe()
	if err != nil {
		return fmt.Errorf("audio pipe: %w", err)
	}
	if err := capture.Start(); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	logging.SpeechDebug("audio capture started: %s", strings.Join(g.audioArgv, " "))

	var grp errgroup.Group

	grp.Go(func() error {
		defer stream.CloseSend()
		buf := make([]byte, audioChunkBytes)
		for {
			n, err := audio.Read(buf)
			if n > 0 {
				req := &speechpb.StreamingRecognizeRequest{
					StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: append([]byte(nil), buf[:n]...)},
				}
				if sendErr := stream.Send(req); sendErr != nil {
					return nil
				}
			}
			if err != nil {
				return nil
			}
		}
	})

	grp.Go(func() error {
		defer stopAudio()
		var final strings.Builder
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return nil
				}
				return fmt.Errorf("recognize stream: %w", err)
			}
			if resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
				stopAudio()
			}

			var interim strings.Builder
			for _, r := range resp.GetResults() {
				alts := r.GetAlternatives()
				if len(alts) == 0 {
					continue
				}
				if r.GetIsFinal() {
					final.WriteString(alts[0].GetTranscript())
					emit(RecognitionEvent{Kind: Final, Transcript: strings.TrimSpace(final.String())})
					continue
				}
				interim.WriteString(alts[0].GetTranscript())
			}
			if interim.Len() > 0 {
				emit(RecognitionEvent{Kind: Interim, Transcript: strings.TrimSpace(final.String() + interim.String())})
			}
		}
	})

	err = grp.Wait()
	if waitErr := capture.Wait(); waitErr != nil && err == nil && audioCtx.Err() == nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			err = fmt.Errorf("audio capture: %w", waitErr)
		}
	}
	return err
}
