// Command bodyconv transcodes a body between its wire and logical forms.
//
// Wire bytes to logical form:
//
//	bodyconv -content-type "application/json; charset=utf-8" -in body.json
//
// Logical form, given as a JSON fixture value, to wire bytes:
//
//	bodyconv -content-type application/octet-stream -from-value -in fixture.json
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanbody-go/body"
	"github.com/illuscio-dev/spanbody-go/config"
	"github.com/illuscio-dev/spanbody-go/mimetype"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	contentType := flag.String("content-type", "", "Content-Type of the body")
	inPath := flag.String("in", "-", "file to read, - for stdin")
	fromValue := flag.Bool(
		"from-value", false, "read the input as a JSON fixture value and write wire bytes",
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "error loading .env:", err)
		os.Exit(1)
	}

	if err := run(*configPath, *contentType, *inPath, *fromValue, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(
	configPath string, contentType string, inPath string, fromValue bool, out io.Writer,
) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	transcoder, err := cfg.NewTranscoder(logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	descriptor, err := mimetype.ParseContentType(contentType, cfg.DefaultCharset)
	if err != nil {
		return err
	}

	input, err := readInput(inPath)
	if err != nil {
		return err
	}

	if fromValue {
		return writeWire(transcoder, descriptor, input, out, logger)
	}
	return writeLogical(transcoder, descriptor, input, out)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// Parses input as a JSON fixture value and writes the body's wire bytes.
func writeWire(
	transcoder *body.Transcoder,
	descriptor *mimetype.Descriptor,
	input []byte,
	out io.Writer,
	logger *zap.Logger,
) error {
	var fixture interface{}
	if err := transcoder.Serializer().Decode(bytes.NewReader(input), &fixture); err != nil {
		return xerrors.Errorf("error reading fixture value: %w", err)
	}

	transcoded, err := transcoder.FromValue(body.ValueOf(fixture), descriptor)
	if err != nil {
		return err
	}

	wire, err := transcoder.ToBytes(transcoded)
	if err != nil {
		return err
	}

	logger.Info(
		"wrote wire bytes",
		zap.String("content_type", descriptor.ContentType()),
		zap.Int("size", len(wire)),
	)
	_, err = out.Write(wire)
	return err
}

// Transcodes input as wire bytes and writes a JSON summary of the logical form.
func writeLogical(
	transcoder *body.Transcoder,
	descriptor *mimetype.Descriptor,
	input []byte,
	out io.Writer,
) error {
	transcoded, err := transcoder.FromBytes(input, descriptor)
	if err != nil {
		return err
	}

	var logical interface{}
	switch value := transcoded.Value().(type) {
	case body.JSON:
		logical = value.Doc
	case body.Text:
		logical = string(value)
	case body.Bytes:
		logical = []byte(value)
	}

	roundTrip, err := transcoder.ToBytes(transcoded)
	if err != nil {
		return err
	}

	summary := map[string]interface{}{
		"content_type":   descriptor.ContentType(),
		"family":         transcoded.Family().String(),
		"base64_framed":  transcoded.IsBase64Framed(),
		"value":          logical,
		"round_trip_ok":  bytes.Equal(roundTrip, input),
		"content_length": len(input),
	}

	if err := transcoder.Serializer().Encode(out, summary); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
