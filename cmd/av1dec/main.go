/*
DESCRIPTION
  av1dec is a program that decodes AV1 video held in an IVF file or OBU
  bytestream and writes the decoded pictures as a YUV4MPEG2 stream. OBU
  bytestreams may also be remuxed into IVF files.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1dec is a command line AV1 decoder.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/ausocean/av1/codec/av1"
	"github.com/ausocean/av1/codec/av1/av1dec"
	"github.com/ausocean/av1/codec/av1/av1dec/config"
	"github.com/ausocean/av1/codec/codecutil"
	"github.com/ausocean/av1/container/ivf"
	"github.com/ausocean/av1/container/y4m"
)

// Logging related constants.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = false
)

// settings holds the command line settings.
type settings struct {
	input, output string
	format        string
	limit, skip   int
	highBitDepth  bool
	verbose       bool

	// remux names an IVF output that an OBU bytestream input is copied to,
	// one temporal unit per frame, instead of being decoded.
	remux string
	pace  time.Duration
}

func main() {
	var (
		s         settings
		vars      = map[string]string{}
		cfgPath   string
		logPath   string
		threads   uint
		opPoint   uint
		allLayers bool
		grain     bool
	)
	flag.StringVar(&s.input, "i", "", "Input IVF file, - for stdin. Files ending in .zst are decompressed.")
	flag.StringVar(&s.format, "format", "", "Input format, ivf or obu. Taken from the input file extension if empty.")
	flag.StringVar(&s.output, "o", "", "Output YUV4MPEG2 file, - for stdout. No output is written if empty.")
	flag.IntVar(&s.limit, "limit", 0, "Maximum number of packets to decode, 0 for no limit.")
	flag.IntVar(&s.skip, "skip", 0, "Number of packets to skip before decoding.")
	flag.BoolVar(&s.highBitDepth, "highbitdepth", true, "Write samples wider than 8 bits; otherwise truncate to 8 bits.")
	flag.BoolVar(&s.verbose, "verbose", false, "Log information for every packet and frame.")
	flag.UintVar(&threads, "threads", 1, "Number of tile threads.")
	flag.UintVar(&opPoint, "oppoint", 0, "Operating point of scalable streams.")
	flag.BoolVar(&allLayers, "alllayers", false, "Output all spatial layers.")
	flag.BoolVar(&grain, "filmgrain", true, "Attach film grain parameters to frames.")
	flag.StringVar(&cfgPath, "config", "", "YAML file of decoder configuration variables.")
	flag.StringVar(&logPath, "log", "", "Log file path; logs go to stderr only if empty.")
	flag.StringVar(&s.remux, "remux", "", "Copy an OBU bytestream input into this IVF file, - for stdout, instead of decoding.")
	flag.DurationVar(&s.pace, "pace", 0, "Minimum interval between temporal units written by -remux.")
	flag.Parse()

	if s.input == "" {
		fmt.Fprintln(os.Stderr, "no input given")
		flag.Usage()
		os.Exit(2)
	}
	if s.format == "" {
		s.format = codecutil.FormatOf(s.input)
	}
	if !codecutil.IsValid(s.format) {
		fmt.Fprintf(os.Stderr, "unknown input format %q\n", s.format)
		os.Exit(2)
	}

	var logOut io.Writer = os.Stderr
	if logPath != "" {
		fileLog := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		defer fileLog.Close()
		logOut = io.MultiWriter(fileLog, os.Stderr)
	}
	var level int8 = logging.Info
	if s.verbose {
		level = logging.Debug
	}
	l := logging.New(level, logOut, logSuppress)

	if s.remux != "" {
		err := remux(s, l)
		if err != nil {
			l.Fatal("remuxing failed", "error", err.Error())
		}
		return
	}

	cfg := config.Config{Logger: l, LogLevel: level}
	if cfgPath != "" {
		fileVars, err := readConfig(cfgPath)
		if err != nil {
			l.Fatal("could not read config file", "error", err.Error())
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	// Flags given explicitly override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			vars[config.KeyThreads] = f.Value.String()
		case "oppoint":
			vars[config.KeyOperatingPoint] = f.Value.String()
		case "alllayers":
			vars[config.KeyAllLayers] = f.Value.String()
		case "filmgrain":
			vars[config.KeyApplyGrain] = f.Value.String()
		}
	})
	if cfgPath == "" {
		vars[config.KeyApplyGrain] = fmt.Sprint(grain)
	}
	cfg.Update(vars)

	err := run(s, cfg, l)
	if err != nil {
		l.Fatal("decoding failed", "error", err.Error())
	}
}

// readConfig reads a YAML file of configuration variables into a map of the
// form taken by config.Config.Update.
func readConfig(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	err = yaml.Unmarshal(b, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse YAML")
	}
	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		vars[k] = fmt.Sprint(v)
	}
	return vars, nil
}

// openInput opens the named input, decompressing zstd files.
func openInput(name string) (io.ReadCloser, error) {
	var f io.ReadCloser = os.Stdin
	if name != "-" {
		var err error
		f, err = os.Open(name)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(name, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "could not create zstd reader")
	}
	return &zstdReadCloser{Decoder: dec, src: f}, nil
}

// zstdReadCloser closes both the zstd decoder and its source.
type zstdReadCloser struct {
	*zstd.Decoder
	src io.Closer
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.src.Close()
}

// openOutput opens the named output. A nil writer is returned for an empty
// name.
func openOutput(name string) (io.WriteCloser, error) {
	switch name {
	case "":
		return nil, nil
	case "-":
		return os.Stdout, nil
	}
	return os.Create(name)
}

// run decodes the input described by s.
func run(s settings, cfg config.Config, l logging.Logger) error {
	in, err := openInput(s.input)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer in.Close()

	src, details, err := openDemuxer(s.format, in)
	if err != nil {
		return err
	}
	l.Info("opened input", "format", s.format, "width", details.Width, "height", details.Height, "frames", details.NumFrames,
		"timebase", fmt.Sprintf("%d/%d", details.TimeBase.Num, details.TimeBase.Den))

	out, err := openOutput(s.output)
	if err != nil {
		return errors.Wrap(err, "could not open output")
	}
	var enc *y4m.Encoder
	if out != nil {
		defer out.Close()
		rate := details.FrameRate()
		enc = y4m.NewEncoder(out, rate.Num, rate.Den, s.highBitDepth)
	}

	for i := 0; i < s.skip; i++ {
		_, err = src.Read()
		if err != nil {
			return errors.Wrapf(err, "could not skip packet %d", i)
		}
	}

	d, err := av1dec.NewDecoder(cfg)
	if err != nil {
		return errors.Wrap(err, "could not create decoder")
	}

	total := s.limit
	if total == 0 && details.NumFrames > s.skip {
		total = details.NumFrames - s.skip
	}
	prog := newProgress(total)

	err = decode(d, src, s.limit, l, func(f *av1dec.Frame) error {
		prog.add(f)
		l.Debug("decoded frame", "pts", f.PTS, "type", f.FrameType.String(),
			"width", f.Planes[0].Width, "height", f.Planes[0].Height, "progress", prog.String())
		if !s.verbose {
			fmt.Fprintf(os.Stderr, "\r%s     ", prog)
		}
		if enc == nil {
			return nil
		}
		return enc.Write(f)
	})
	fmt.Fprintf(os.Stderr, "\n%s\n", prog.summary())
	return err
}

// remux copies the OBU bytestream input named by s into an IVF stream, each
// temporal unit becoming one frame.
func remux(s settings, l logging.Logger) error {
	if s.format != codecutil.OBU {
		return errors.Errorf("can only remux %s input, not %s", codecutil.OBU, s.format)
	}
	in, err := openInput(s.input)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer in.Close()
	out, err := openOutput(s.remux)
	if err != nil {
		return errors.Wrap(err, "could not open output")
	}
	defer out.Close()

	n, err := remuxUnits(out, in, s.pace)
	l.Info("remuxed temporal units", "units", n)
	return err
}

// remuxUnits lexes the temporal units read from src into an IVF stream
// written to dst, at most one unit per interval pace, returning the number
// of units written.
func remuxUnits(dst io.Writer, src io.Reader, pace time.Duration) (int, error) {
	enc := ivf.NewEncoder(dst, obuTimeBase)
	err := av1.Lex(enc, src, pace)
	if err != io.EOF {
		return enc.Frames(), errors.Wrap(err, "could not lex input")
	}
	return enc.Frames(), enc.Close()
}

// obuTimeBase is assumed for OBU bytestreams, which carry no timing.
var obuTimeBase = ivf.Rational{Num: 1, Den: 30}

// openDemuxer returns a packet source for the input in of the given format.
func openDemuxer(format string, in io.Reader) (packetReader, ivf.VideoDetails, error) {
	if format == codecutil.OBU {
		return av1.NewScanner(in), ivf.VideoDetails{TimeBase: obuTimeBase}, nil
	}
	dmx := ivf.NewDemuxer(in)
	details, err := dmx.Open()
	if err != nil {
		return nil, details, errors.Wrap(err, "could not open IVF stream")
	}
	return dmx, details, nil
}

// packetReader is a source of packets, returning io.EOF at the end of the
// stream.
type packetReader interface {
	Read() (*av1dec.Packet, error)
}

var errDecode = errors.New("could not decode stream")

// decode sends packets from src to d until the stream ends or limit packets
// have been sent, passing each frame received to emit. Decoding stops at the
// first packet that fails to decode.
func decode(d *av1dec.Decoder, src packetReader, limit int, l logging.Logger, emit func(*av1dec.Frame) error) error {
	var count int
	for {
		if limit != 0 && count == limit {
			d.Flush()
		} else {
			p, err := src.Read()
			switch {
			case err == io.EOF:
				d.Flush()
			case err != nil:
				return errors.Wrap(err, "could not read packet")
			default:
				count++
				l.Debug("read packet", "pts", p.PTS, "size", len(p.Data))
				err = d.SendPacket(p)
				if err != nil && err != av1dec.StatusNeedMoreData {
					return errors.Wrap(err, "could not send packet")
				}
			}
		}

		for {
			f, err := d.ReceiveFrame()
			switch err {
			case nil:
				err = emit(f)
				if err != nil {
					return errors.Wrap(err, "could not write frame")
				}
				continue
			case av1dec.StatusNeedMoreData:
			case av1dec.StatusLimitReached:
				return nil
			case av1dec.StatusFailure:
				return errors.Wrapf(errDecode, "packet %d", count)
			default:
				return errors.Wrap(err, "unexpected decoder status")
			}
			break
		}
	}
}
