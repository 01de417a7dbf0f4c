package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleSpeech transcribes one utterance per call with the synchronous
// Recognize API.
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	Model        string
}

// NewGoogleSpeech uses credentialsFile when set, otherwise application
// default credentials.
func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: SampleRate,
		Model:        "latest_short",
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "en-IN"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			Model:                      g.Model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	// results are consecutive portions of the audio; take the top
	// alternative of each
	var text []byte
	var conf float64
	n := 0
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 || r.Alternatives[0].Transcript == "" {
			continue
		}
		if len(text) > 0 {
			text = append(text, ' ')
		}
		text = append(text, r.Alternatives[0].Transcript...)
		conf += float64(r.Alternatives[0].Confidence)
		n++
	}
	if n > 0 {
		conf /= float64(n)
	}
	return string(text), conf, nil
}
