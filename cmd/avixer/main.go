package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlescerisier/avixer/avi"
	"github.com/charlescerisier/avixer/extractor"
	"github.com/charlescerisier/avixer/internal/loggingx"
)

// OutputFormat selects how analyzeFile renders its result.
type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputText OutputFormat = "text"
)

// Config holds CLI configuration.
type Config struct {
	InputFile    string
	OutputFile   string
	OutputFormat OutputFormat
	ShowStreams  bool
	ShowPackets  bool
	Verbose      bool
	SeekSeconds  float64
}

// PacketInfo is one emitted sample, ffprobe-packet-flavored.
type PacketInfo struct {
	CodecType string `json:"codec_type"`
	StreamID  int    `json:"stream_index"`
	PTSTime   string `json:"pts_time"`
	Size      int    `json:"size"`
	Pos       string `json:"pos,omitempty"`
	KeyFrame  bool   `json:"key_frame"`
}

// StreamInfo is one track's summary for JSON/text output.
type StreamInfo struct {
	Index      int     `json:"index"`
	CodecType  string  `json:"codec_type"`
	CodecName  string  `json:"codec_name,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Label      string  `json:"label,omitempty"`
}

// FileOutput is the top-level JSON document.
type FileOutput struct {
	Seekable bool         `json:"seekable"`
	Duration string       `json:"duration_us,omitempty"`
	Streams  []StreamInfo `json:"streams,omitempty"`
	Packets  []PacketInfo `json:"packets,omitempty"`
}

func main() {
	config := parseFlags()

	if config.InputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: input file is required\n")
		flag.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(config.InputFile); os.IsNotExist(err) {
		log.Fatalf("Error: input file '%s' does not exist", config.InputFile)
	}

	if err := analyzeFile(config); err != nil {
		log.Fatalf("Error analyzing file: %v", err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.InputFile, "i", "", "Input AVI file")
	flag.StringVar(&config.OutputFile, "o", "", "Output file (default: input.avi.json)")
	flag.BoolVar(&config.ShowStreams, "show-streams", true, "Show stream information")
	flag.BoolVar(&config.ShowPackets, "show-packets", false, "Include packet/sample information")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")
	flag.Float64Var(&config.SeekSeconds, "ss", 0, "Seek to this offset (seconds) before reading samples")

	var format string
	flag.StringVar(&format, "f", "json", "Output format (json, text)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -i input.avi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i video.avi                    # Analyze video.avi, output to video.avi.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -o info.json       # Analyze video.avi, output to info.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -f text            # Text output instead of JSON\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -show-packets      # Include sample information\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -ss 12.5           # Seek to 12.5s before reading samples\n", os.Args[0])
	}

	flag.Parse()

	switch strings.ToLower(format) {
	case "json":
		config.OutputFormat = OutputJSON
	case "text":
		config.OutputFormat = OutputText
	default:
		log.Fatalf("Error: unsupported output format '%s'", format)
	}

	if config.OutputFile == "" && config.OutputFormat == OutputJSON {
		config.OutputFile = config.InputFile + ".json"
	}

	return config
}

func analyzeFile(config Config) error {
	f, err := os.Open(config.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	logger := loggingx.Discard()
	if config.Verbose {
		logger = loggingx.New()
	}

	sink := newCollectingSink(config.ShowPackets)
	in := extractor.NewFileInput(f, st.Size())
	demuxer := avi.NewAviDemuxer(sink, logger)

	for {
		result, err := demuxer.Read(in)
		if err != nil {
			return fmt.Errorf("demux failed: %w", err)
		}
		if result == extractor.ResultEndOfInput {
			break
		}
		if sink.seeked && config.SeekSeconds > 0 {
			if _, err := demuxer.Seek(in, int64(config.SeekSeconds*1e6)); err != nil {
				return fmt.Errorf("seek failed: %w", err)
			}
			config.SeekSeconds = 0 // only seek once, right after the seek map is known
		}
	}

	if config.Verbose {
		fmt.Printf("Analyzing file: %s\n", config.InputFile)
		fmt.Printf("File size: %d bytes\n", st.Size())
		fmt.Printf("Streams: %d\n", len(sink.streams))
	}

	switch config.OutputFormat {
	case OutputJSON:
		return generateJSONOutput(config, sink)
	case OutputText:
		return generateTextOutput(config, sink)
	default:
		return fmt.Errorf("unsupported output format")
	}
}

func generateJSONOutput(config Config, sink *collectingSink) error {
	output := FileOutput{
		Seekable: sink.seekable,
	}
	if config.ShowStreams {
		output.Streams = sink.streamInfos()
	}
	if config.ShowPackets {
		output.Packets = sink.packets
	}

	var err error
	if config.OutputFile != "" {
		err = writeJSONToFile(output, config.OutputFile)
	} else {
		err = writeJSONToStdout(output)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if config.Verbose && config.OutputFile != "" {
		fmt.Printf("Output written to: %s\n", config.OutputFile)
	}
	return nil
}

func generateTextOutput(config Config, sink *collectingSink) error {
	var output *os.File = os.Stdout
	if config.OutputFile != "" {
		var err error
		output, err = os.Create(config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	fmt.Fprintf(output, "File: %s\n", filepath.Base(config.InputFile))
	fmt.Fprintf(output, "Seekable: %v\n\n", sink.seekable)

	if config.ShowStreams {
		fmt.Fprintf(output, "Streams:\n")
		for _, s := range sink.streamInfos() {
			fmt.Fprintf(output, "  Stream #%d: %s", s.Index, s.CodecType)
			if s.CodecType == string(avi.StreamTypeVideo) {
				fmt.Fprintf(output, " (%s) %dx%d", s.CodecName, s.Width, s.Height)
				if s.FPS > 0 {
					fmt.Fprintf(output, " @ %.2f fps", s.FPS)
				}
			} else if s.CodecType == string(avi.StreamTypeAudio) {
				fmt.Fprintf(output, " (%s) %d Hz, %d channels", s.CodecName, s.SampleRate, s.Channels)
			}
			fmt.Fprintf(output, "\n")
		}
	}

	if config.ShowPackets {
		fmt.Fprintf(output, "\nPackets: %d\n", len(sink.packets))
	}

	return nil
}

func writeJSONToFile(output FileOutput, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(output)
}

func writeJSONToStdout(output FileOutput) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(output)
}

// collectingSink implements extractor.TrackSink, gathering formats and
// (optionally) samples in memory for the CLI's JSON/text renderers.
type collectingSink struct {
	collectSamples bool
	streams        []*collectingOutput
	packets        []PacketInfo
	seekable       bool
	durationUs     int64
	seeked         bool
}

func newCollectingSink(collectSamples bool) *collectingSink {
	return &collectingSink{collectSamples: collectSamples}
}

func (s *collectingSink) Track(id int, trackType string) extractor.TrackOutput {
	out := &collectingOutput{id: id, trackType: trackType, sink: s}
	s.streams = append(s.streams, out)
	return out
}

func (s *collectingSink) EndTracks() {}

func (s *collectingSink) SeekMap(m extractor.SeekMap) {
	s.seekable = m.IsSeekable()
	s.durationUs = m.DurationUs()
	s.seeked = true
}

func (s *collectingSink) streamInfos() []StreamInfo {
	infos := make([]StreamInfo, 0, len(s.streams))
	for _, out := range s.streams {
		info := StreamInfo{
			Index:      out.id,
			CodecType:  out.trackType,
			CodecName:  out.format.MimeType,
			SampleRate: out.format.SampleRate,
			Channels:   out.format.ChannelCount,
			FPS:        out.format.FrameRate,
			Label:      out.format.Label,
		}
		infos = append(infos, info)
	}
	return infos
}

// appendPacket accumulates every SampleMetadata call across every track, in
// the order they were emitted.
func (s *collectingSink) appendPacket(p PacketInfo) {
	s.packets = append(s.packets, p)
}

// collectingOutput implements extractor.TrackOutput for one track.
type collectingOutput struct {
	id        int
	trackType string
	format    extractor.Format
	sink      *collectingSink
	pending   int
}

func (o *collectingOutput) Format(f extractor.Format) { o.format = f }

func (o *collectingOutput) SampleData(data []byte) (int, error) {
	o.pending += len(data)
	return len(data), nil
}

func (o *collectingOutput) SampleDataFromInput(input extractor.Input, length int, allowEndOfInput bool) (int, error) {
	if err := input.SkipFully(int64(length)); err != nil {
		if allowEndOfInput {
			return 0, io.EOF
		}
		return 0, err
	}
	o.pending += length
	return length, nil
}

func (o *collectingOutput) SampleMetadata(timeUs int64, flags extractor.SampleFlags, size int, offset int) {
	if o.sink.collectSamples {
		o.sink.appendPacket(PacketInfo{
			CodecType: o.trackType,
			StreamID:  o.id,
			PTSTime:   fmt.Sprintf("%.6f", float64(timeUs)/1e6),
			Size:      size,
			KeyFrame:  flags&extractor.SampleFlagKeyFrame != 0,
		})
	}
	o.pending = 0
}
